package services

import (
	"context"
	"errors"
	"fmt"

	"promptmatch-backend/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

// MatchNotifier tells both participants about a new match
type MatchNotifier interface {
	NotifyMatch(ctx context.Context, match *models.Match, users []*models.User) error
}

// NopNotifier drops notifications. Used when push is not configured.
type NopNotifier struct{}

// NotifyMatch does nothing
func (NopNotifier) NotifyMatch(context.Context, *models.Match, []*models.User) error { return nil }

// APNSNotifier sends match notifications through Apple Push Notification service
type APNSNotifier struct {
	client *apns2.Client
	topic  string
}

// NewAPNSNotifier creates a notifier from a .p12 certificate
func NewAPNSNotifier(certFile, password, topic string, production bool) (*APNSNotifier, error) {
	cert, err := certificate.FromP12File(certFile, password)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}

	client := apns2.NewClient(cert)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}
	return NewAPNSNotifierWithClient(client, topic), nil
}

// NewAPNSNotifierWithClient creates a notifier on top of an existing client
func NewAPNSNotifierWithClient(client *apns2.Client, topic string) *APNSNotifier {
	return &APNSNotifier{client: client, topic: topic}
}

// NotifyMatch pushes to every participant with a registered device token
func (n *APNSNotifier) NotifyMatch(ctx context.Context, match *models.Match, users []*models.User) error {
	var errs []error
	for _, user := range users {
		if user.PushToken == nil || *user.PushToken == "" {
			continue
		}

		otherName := "someone"
		for _, other := range users {
			if other.ID != user.ID {
				otherName = other.Name
			}
		}

		notification := &apns2.Notification{
			DeviceToken: *user.PushToken,
			Topic:       n.topic,
			Payload: payload.NewPayload().
				AlertTitle("It's a match!").
				AlertBody(fmt.Sprintf("You and %s liked each other", otherName)).
				Sound("default").
				Custom("match_id", match.ID),
		}

		res, err := n.client.PushWithContext(ctx, notification)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to push to user %s: %w", user.ID, err))
			continue
		}
		if !res.Sent() {
			log.Warn().
				Str("user_id", user.ID).
				Int("status", res.StatusCode).
				Str("reason", res.Reason).
				Msg("APNs rejected match notification")
		}
	}
	return errors.Join(errs...)
}
