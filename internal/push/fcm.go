package push

import (
	"context"
	"fmt"
	"strconv"

	"eskan-backend/internal/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSender pushes notifications to the recipient's registered device.
type FCMSender struct {
	client messageSender
}

func NewFCMSender(ctx context.Context, projectID, credentialsPath string) (*FCMSender, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize messaging client: %w", err)
	}
	return &FCMSender{client: client}, nil
}

// Deliver is a no-op for recipients without a device token.
func (s *FCMSender) Deliver(ctx context.Context, n *models.Notification, recipient *models.UserProfile) error {
	msg := buildMessage(n, recipient)
	if msg == nil {
		return nil
	}
	if _, err := s.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to push notification %d: %w", n.ID, err)
	}
	return nil
}

func buildMessage(n *models.Notification, recipient *models.UserProfile) *messaging.Message {
	if recipient == nil || recipient.DeviceToken == "" {
		return nil
	}
	data := map[string]string{
		"notification_id": strconv.FormatUint(uint64(n.ID), 10),
		"type":            n.NotificationType,
	}
	if n.RelatedPropertyID != nil {
		data["property_id"] = n.RelatedPropertyID.String()
	}
	return &messaging.Message{
		Token: recipient.DeviceToken,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: data,
	}
}
