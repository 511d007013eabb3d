package push

import (
	"context"
	"errors"
	"testing"

	"eskan-backend/internal/models"

	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	sent []*messaging.Message
	err  error
}

func (f *fakeClient) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.sent = append(f.sent, m)
	return "projects/eskan/messages/1", f.err
}

func TestDeliverSkipsProfilesWithoutToken(t *testing.T) {
	client := &fakeClient{}
	s := &FCMSender{client: client}

	err := s.Deliver(context.Background(), &models.Notification{ID: 1}, &models.UserProfile{})
	require.NoError(t, err)
	assert.Empty(t, client.sent)
}

func TestDeliverBuildsMessage(t *testing.T) {
	client := &fakeClient{}
	s := &FCMSender{client: client}
	propertyID := uuid.New()

	n := &models.Notification{
		ID:                5,
		NotificationType:  models.NotificationPropertyRejected,
		Title:             "Property rejected",
		Message:           "incomplete info",
		RelatedPropertyID: &propertyID,
	}
	require.NoError(t, s.Deliver(context.Background(), n, &models.UserProfile{DeviceToken: "device-1"}))

	require.Len(t, client.sent, 1)
	msg := client.sent[0]
	assert.Equal(t, "device-1", msg.Token)
	assert.Equal(t, "Property rejected", msg.Notification.Title)
	assert.Equal(t, "5", msg.Data["notification_id"])
	assert.Equal(t, propertyID.String(), msg.Data["property_id"])
}

func TestDeliverWrapsErrors(t *testing.T) {
	s := &FCMSender{client: &fakeClient{err: errors.New("unavailable")}}
	err := s.Deliver(context.Background(), &models.Notification{ID: 2}, &models.UserProfile{DeviceToken: "d"})
	assert.ErrorContains(t, err, "unavailable")
}
