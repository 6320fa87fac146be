package notification

import "context"

// Messenger defines the interface for sending push notifications.
// Implemented by the Firebase FCM client in the infrastructure layer.
type Messenger interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// Mailer renders and sends the email for an event.
type Mailer interface {
	SendEventEmail(ctx context.Context, to Recipient, e Event) error
}
