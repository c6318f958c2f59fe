// Package push sends Web Push notifications for gamification events.
package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"

	"github.com/dukerupert/homequest/internal/docstore"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

const subscriptionsCollection = "push_subscriptions"

// Subscription is a browser push endpoint as delivered by the UI's service
// worker registration.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Payload is the JSON sent to the push service.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
}

// Config holds VAPID configuration.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

// Service stores per-user push subscriptions in the document store and sends
// notifications to them. It implements the game engine's Notifier.
type Service struct {
	store      *docstore.SQLiteStore
	publicKey  string
	privateKey string
	logger     *slog.Logger
}

func NewService(cfg Config, store *docstore.SQLiteStore, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		logger:     logger,
	}
}

// VAPIDPublicKey returns the public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// Save upserts a subscription for the owner, keyed by endpoint so the same
// browser re-registering does not pile up duplicates.
func (s *Service) Save(ctx context.Context, ownerID string, sub Subscription) error {
	if sub.Endpoint == "" {
		return errors.New("subscription endpoint is required")
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(sub.Endpoint)).String()
	fields := map[string]any{
		"endpoint": sub.Endpoint,
		"p256dh":   sub.P256dh,
		"auth":     sub.Auth,
	}
	if err := s.store.SetByID(ctx, ownerID, subscriptionsCollection, id, fields); err != nil {
		return fmt.Errorf("save push subscription: %w", err)
	}
	return nil
}

// LevelUp notifies all of the owner's registered endpoints. Delivery runs in
// the background; gamification never waits on a push service.
func (s *Service) LevelUp(ownerID string, level int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		payload := Payload{
			Title: "Level Up!",
			Body:  fmt.Sprintf("You reached level %d! Keep up the great work!", level),
			Tag:   "level_up",
		}
		if err := s.sendToOwner(ctx, ownerID, payload); err != nil {
			s.logger.Warn("level-up push", "user", ownerID, "error", err)
		}
	}()
}

func (s *Service) sendToOwner(ctx context.Context, ownerID string, payload Payload) error {
	docs, err := s.store.ListByOwner(ctx, ownerID, subscriptionsCollection)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}

	for _, doc := range docs {
		sub := Subscription{}
		sub.Endpoint, _ = doc.Fields["endpoint"].(string)
		sub.P256dh, _ = doc.Fields["p256dh"].(string)
		sub.Auth, _ = doc.Fields["auth"].(string)

		err := s.send(sub, payload)
		if errors.Is(err, ErrExpired) {
			// Browser dropped the subscription; forget it.
			if derr := s.store.DeleteByID(ctx, ownerID, subscriptionsCollection, doc.ID); derr != nil {
				s.logger.Warn("prune expired subscription", "error", derr)
			}
			continue
		}
		if err != nil {
			s.logger.Warn("push send", "endpoint", sub.Endpoint, "error", err)
		}
	}
	return nil
}

func (s *Service) send(sub Subscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      "mailto:noreply@homequest.app",
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID,
// base64url-encoded the way push services expect.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate key: %w", err)
	}

	privateKey = base64.RawURLEncoding.EncodeToString(key.D.Bytes())
	publicKey = base64.RawURLEncoding.EncodeToString(
		elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y),
	)
	return publicKey, privateKey, nil
}
