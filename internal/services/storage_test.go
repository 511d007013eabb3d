package services

import (
	"regexp"
	"testing"

	"eskan-backend/internal/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMediaKey(t *testing.T) {
	id := uuid.MustParse("7d7f5d2e-3b7a-4a52-9a8e-2b0c1f6f0a11")
	key := MediaKey("images", id, 3, "Living Room.JPG")
	pattern := `^properties/7d7f5d2e-3b7a-4a52-9a8e-2b0c1f6f0a11/images/03_[0-9a-f-]{36}\.jpg$`
	assert.Regexp(t, regexp.MustCompile(pattern), key)
	assert.NotEqual(t, key, MediaKey("images", id, 3, "Living Room.JPG"))
}

func TestExtractKeyFromURL(t *testing.T) {
	s := &StorageService{cfg: &config.Config{MinIOEndpoint: "localhost:9000", S3Bucket: "eskan"}}
	tests := []struct {
		url  string
		want string
	}{
		{"https://eskan.s3.eu-central-1.amazonaws.com/properties/a/images/00_x.jpg", "properties/a/images/00_x.jpg"},
		{"http://localhost:9000/eskan/properties/a/videos/00_x.mp4", "properties/a/videos/00_x.mp4"},
		{"https://elsewhere.test/properties/a.jpg", ""},
		{"not a url", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.extractKeyFromURL(tt.url), tt.url)
	}
}
