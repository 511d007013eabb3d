package redis

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestInitializeRejectsBadURL(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := Initialize(context.Background(), "localhost:6379", log)
	assert.ErrorContains(t, err, "failed to parse Redis URL")
}
