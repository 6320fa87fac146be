package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"pocketbook/internal/domain/notification"
)

func TestHandleDelivery(t *testing.T) {
	valid, err := json.Marshal(notification.NewEvent(notification.EventGoalCreated, 7, map[string]string{
		notification.DataTitle: "Bike",
	}))
	if err != nil {
		t.Fatal(err)
	}
	noUser, _ := json.Marshal(notification.NewEvent(notification.EventGoalCreated, 0, nil))

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		wantAck    bool
		wantCalled bool
	}{
		{name: "valid event", body: valid, wantAck: true, wantCalled: true},
		{name: "handler failure is dropped", body: valid, handlerErr: errors.New("smtp down"), wantAck: false, wantCalled: true},
		{name: "invalid json", body: []byte("{"), wantAck: false},
		{name: "missing user", body: noUser, wantAck: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *notification.Event
			h := notification.HandlerFunc(func(_ context.Context, e notification.Event) error {
				got = &e
				return tt.handlerErr
			})

			if ack := handleDelivery(context.Background(), tt.body, h); ack != tt.wantAck {
				t.Errorf("handleDelivery() ack = %v, want %v", ack, tt.wantAck)
			}
			if (got != nil) != tt.wantCalled {
				t.Fatalf("handler called = %v, want %v", got != nil, tt.wantCalled)
			}
			if got != nil && (got.UserID != 7 || got.Data[notification.DataTitle] != "Bike") {
				t.Errorf("unexpected event delivered: %+v", got)
			}
		})
	}
}
