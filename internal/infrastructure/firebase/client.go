// Package firebase delivers push notifications through Firebase Cloud Messaging.
package firebase

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

const fcmBatchLimit = 500

// TokenDeactivator marks a token FCM rejected as inactive.
// postgres.NotificationRepository satisfies it.
type TokenDeactivator interface {
	DeactivateToken(ctx context.Context, token string) error
}

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Client implements notification.Messenger.
type Client struct {
	msgClient   multicastSender
	deactivator TokenDeactivator
}

// NewClient initializes a Firebase app from a service account file.
// deactivator may be nil.
func NewClient(ctx context.Context, credentialsFile string, deactivator TokenDeactivator) (*Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging client: %w", err)
	}

	return &Client{msgClient: msgClient, deactivator: deactivator}, nil
}

// SendMulticast sends one notification to every token, batching to the
// FCM limit of 500 tokens per request.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	var sent, failed int
	for _, batch := range chunkTokens(tokens, fcmBatchLimit) {
		resp, err := c.msgClient.SendEachForMulticast(ctx, newMulticast(batch, title, body, data))
		if err != nil {
			return fmt.Errorf("failed to send FCM multicast: %w", err)
		}

		sent += resp.SuccessCount
		failed += resp.FailureCount
		if resp.FailureCount > 0 {
			c.handleMulticastFailures(ctx, batch, resp)
		}
	}

	slog.DebugContext(ctx, "FCM multicast sent", "success", sent, "failure", failed, "route", data[routeKey])
	return nil
}

const (
	routeKey         = "route"
	androidChannelID = "pocketbook_"
	billsRoute       = "bills"
)

// newMulticast builds the platform payloads. The route key, which is the
// notification category, picks the Android channel and the iOS thread so
// devices group notifications per category. Bill reminders are time
// sensitive and go out at high priority.
func newMulticast(tokens []string, title, body string, data map[string]string) *messaging.MulticastMessage {
	route := data[routeKey]

	android := &messaging.AndroidConfig{
		Priority: "normal",
		Notification: &messaging.AndroidNotification{
			ChannelID: androidChannelID + route,
		},
	}
	apnsHeaders := map[string]string{"apns-priority": "5"}
	if route == billsRoute {
		android.Priority = "high"
		apnsHeaders["apns-priority"] = "10"
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:    data,
		Android: android,
		APNS: &messaging.APNSConfig{
			Headers: apnsHeaders,
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ThreadID: route,
					Sound:    "default",
				},
			},
		},
	}
}

// handleMulticastFailures deactivates tokens FCM reports as unregistered
// or malformed. Other failures are transient and leave the token active.
func (c *Client) handleMulticastFailures(ctx context.Context, tokens []string, resp *messaging.BatchResponse) {
	var stale int
	for i, r := range resp.Responses {
		if r.Error == nil || i >= len(tokens) {
			continue
		}
		if !messaging.IsUnregistered(r.Error) && !messaging.IsInvalidArgument(r.Error) {
			slog.WarnContext(ctx, "FCM send error", "index", i, "error", r.Error)
			continue
		}
		stale++
		if c.deactivator == nil {
			continue
		}
		if err := c.deactivator.DeactivateToken(ctx, tokens[i]); err != nil {
			slog.WarnContext(ctx, "failed to deactivate FCM token", "error", err)
		}
	}
	if stale > 0 {
		slog.InfoContext(ctx, "deactivated stale FCM tokens", "count", stale)
	}
}

func chunkTokens(tokens []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(tokens); i += size {
		end := min(i+size, len(tokens))
		chunks = append(chunks, tokens[i:end])
	}
	return chunks
}
