package search

import (
	"context"
	"testing"

	"eskan-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewDocument(t *testing.T) {
	id := uuid.New()
	doc := NewDocument(&models.Property{
		ID:        id,
		Name:      "Nile view flat",
		Area:      &models.Area{Name: "Zamalek"},
		UsageType: models.UsageFamilies,
		Price:     100000,
		Rooms:     3,
	})

	assert.Equal(t, id.String(), doc.ID)
	assert.Equal(t, "Zamalek", doc.Area)
	assert.Equal(t, "families", doc.UsageType)
	assert.Equal(t, 3, doc.Rooms)

	assert.Empty(t, NewDocument(&models.Property{ID: id}).Area)
}

func TestNoop(t *testing.T) {
	var idx Indexer = Noop{}
	ctx := context.Background()

	assert.NoError(t, idx.Upsert(ctx, &models.Property{}))
	assert.NoError(t, idx.Remove(ctx, "x"))
	_, err := idx.Search(ctx, "flat", 10)
	assert.ErrorIs(t, err, ErrDisabled)
}
