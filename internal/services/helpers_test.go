package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"eskan-backend/internal/database"
	"eskan-backend/internal/mailer"
	"eskan-backend/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.DriverSQLite, ":memory:", logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

// createViewer inserts a user and profile of the given type.
func createViewer(t *testing.T, db *gorm.DB, username string, userType models.UserType) *Viewer {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		FirstName:    username,
		IsActive:     true,
		IsStaff:      userType == models.UserTypeAdmin,
		Profile:      &models.UserProfile{UserType: userType, Email: username + "@example.com"},
	}
	require.NoError(t, db.Create(user).Error)
	return &Viewer{User: user, Profile: user.Profile}
}

func createArea(t *testing.T, db *gorm.DB, name string) *models.Area {
	t.Helper()
	area := &models.Area{Name: name}
	require.NoError(t, db.Create(area).Error)
	return area
}

// createProperty inserts a listing directly, bypassing moderation.
func createProperty(t *testing.T, db *gorm.DB, owner *Viewer, status models.PropertyStatus, price float64) *models.Property {
	t.Helper()
	p := &models.Property{Name: fmt.Sprintf("listing %.0f", price), Price: price, Status: status}
	if owner != nil {
		id := owner.ProfileID()
		p.OwnerID = &id
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.Subject)
	}
	return out
}

type fakeMedia struct {
	uploaded []string
	deleted  []string
	failOn   string
}

func (f *fakeMedia) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if f.failOn != "" && strings.Contains(key, f.failOn) {
		return "", fmt.Errorf("upload refused")
	}
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	url := "https://media.test/" + key
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeMedia) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

func upload(name string) MediaUpload {
	return MediaUpload{
		Filename:    name,
		ContentType: "image/jpeg",
		Size:        4,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("data")), nil
		},
	}
}

type fakeIndexer struct {
	upserted map[string]bool
	results  []string
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{upserted: map[string]bool{}}
}

func (f *fakeIndexer) Upsert(_ context.Context, p *models.Property) error {
	f.upserted[p.ID.String()] = true
	return nil
}

func (f *fakeIndexer) Remove(_ context.Context, id string) error {
	delete(f.upserted, id)
	return nil
}

func (f *fakeIndexer) Search(context.Context, string, int64) ([]string, error) {
	return f.results, nil
}

type fakeDeliverer struct {
	delivered []*models.Notification
}

func (f *fakeDeliverer) Deliver(_ context.Context, n *models.Notification, _ *models.UserProfile) error {
	f.delivered = append(f.delivered, n)
	return nil
}
