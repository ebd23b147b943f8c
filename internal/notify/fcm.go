package notify

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"google.golang.org/api/option"
)

// TokenSource lists the push tokens registered by a user.
type TokenSource interface {
	TokensByUser(ctx context.Context, userID string) ([]string, error)
}

// Sender sends a single push message.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCM pushes events to every registered device of the recipient.
type FCM struct {
	client Sender
	tokens TokenSource
	logger Logger
}

// NewFCMClient creates a messaging client from a service account file.
func NewFCMClient(ctx context.Context, credentialsFile string) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return client, nil
}

// NewFCM creates a push notifier.
func NewFCM(client Sender, tokens TokenSource, logger Logger) *FCM {
	return &FCM{client: client, tokens: tokens, logger: logger}
}

// Notify sends ev to every device of ev.UserID.
func (f *FCM) Notify(ctx context.Context, ev Event) error {
	tokens, err := f.tokens.TokensByUser(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("fcm tokens for %s: %w", ev.UserID, err)
	}
	var errs []error
	for _, token := range tokens {
		if _, err := f.client.Send(ctx, buildMessage(token, ev)); err != nil {
			errs = append(errs, fmt.Errorf("fcm send: %w", err))
			continue
		}
		if f.logger != nil {
			f.logger.Infof("push %s sent to %s", ev.Type, ev.UserID)
		}
	}
	return errors.Join(errs...)
}

func buildMessage(token string, ev Event) *messaging.Message {
	data := make(map[string]string, len(ev.Data)+1)
	for k, v := range ev.Data {
		data[k] = v
	}
	data["type"] = ev.Type

	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: ev.Title,
			Body:  ev.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority_channel",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: ev.Title,
						Body:  ev.Body,
					},
					Sound: "default",
				},
			},
		},
	}
}
