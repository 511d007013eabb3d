package search

import (
	"context"
	"errors"
	"fmt"

	"eskan-backend/internal/models"

	"github.com/meilisearch/meilisearch-go"
)

// ErrDisabled is returned by Search when no engine is configured.
var ErrDisabled = errors.New("search engine not configured")

// Indexer keeps approved listings searchable.
type Indexer interface {
	Upsert(ctx context.Context, property *models.Property) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int64) ([]string, error)
}

// Document is the indexed shape of a listing.
type Document struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Description string  `json:"description"`
	Area        string  `json:"area"`
	UsageType   string  `json:"usage_type"`
	Price       float64 `json:"price"`
	Rooms       int     `json:"rooms"`
	Furnished   bool    `json:"furnished"`
	Featured    bool    `json:"featured"`
}

func NewDocument(p *models.Property) Document {
	doc := Document{
		ID:          p.ID.String(),
		Name:        p.Name,
		Address:     p.Address,
		Description: p.Description,
		UsageType:   string(p.UsageType),
		Price:       p.Price,
		Rooms:       p.Rooms,
		Furnished:   p.Furnished,
		Featured:    p.Featured,
	}
	if p.Area != nil {
		doc.Area = p.Area.Name
	}
	return doc
}

type MeiliIndexer struct {
	client *meilisearch.Client
	index  string
}

func NewMeiliIndexer(host, apiKey, index string) *MeiliIndexer {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	return &MeiliIndexer{client: client, index: index}
}

// InitIndex creates the index and its settings. Existing indexes are reused.
func (s *MeiliIndexer) InitIndex() error {
	if _, err := s.client.GetIndex(s.index); err != nil {
		if _, err := s.client.CreateIndex(&meilisearch.IndexConfig{
			Uid:        s.index,
			PrimaryKey: "id",
		}); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	index := s.client.Index(s.index)
	if _, err := index.UpdateSearchableAttributes(&[]string{
		"name", "address", "area", "description",
	}); err != nil {
		return err
	}
	if _, err := index.UpdateFilterableAttributes(&[]string{
		"usage_type", "rooms", "price", "furnished", "featured", "area",
	}); err != nil {
		return err
	}
	_, err := index.UpdateSortableAttributes(&[]string{"price", "rooms"})
	return err
}

func (s *MeiliIndexer) Upsert(_ context.Context, property *models.Property) error {
	_, err := s.client.Index(s.index).AddDocuments([]Document{NewDocument(property)}, "id")
	return err
}

func (s *MeiliIndexer) Remove(_ context.Context, id string) error {
	_, err := s.client.Index(s.index).DeleteDocument(id)
	return err
}

// Search returns matching listing ids in relevance order.
func (s *MeiliIndexer) Search(_ context.Context, query string, limit int64) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	res, err := s.client.Index(s.index).Search(query, &meilisearch.SearchRequest{
		Limit:                limit,
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if m, ok := hit.(map[string]interface{}); ok {
			if id, ok := m["id"].(string); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// Noop is used when MEILISEARCH_HOST is empty.
type Noop struct{}

func (Noop) Upsert(context.Context, *models.Property) error { return nil }

func (Noop) Remove(context.Context, string) error { return nil }

func (Noop) Search(context.Context, string, int64) ([]string, error) { return nil, ErrDisabled }
