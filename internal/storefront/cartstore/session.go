// internal/storefront/cartstore/session.go
package cartstore

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/storefront/events"
	"go.uber.org/multierr"
)

// KeyToken holds the bearer token issued at login
const KeyToken = "authToken"

// Profile is the detail published with every profileUpdated event
type Profile struct {
	UserID string
	Role   string
}

// Session tracks who is signed in on this device
type Session struct {
	storage Storage
	bus     *events.Bus
	logger  *logrus.Logger
}

func NewSession(storage Storage, bus *events.Bus, logger *logrus.Logger) *Session {
	return &Session{storage: storage, bus: bus, logger: logger}
}

// SetUser records a sign-in
func (s *Session) SetUser(ctx context.Context, userID, role, token string) error {
	err := multierr.Combine(
		s.storage.Set(ctx, KeyUserID, userID),
		s.storage.Set(ctx, KeyUserRole, role),
		s.storage.Set(ctx, KeyToken, token),
	)
	if err != nil {
		return err
	}
	s.bus.Publish(events.ProfileUpdated, Profile{UserID: userID, Role: role})
	return nil
}

// UserID returns the signed-in user, or "" when nobody is signed in
func (s *Session) UserID(ctx context.Context) string {
	return s.get(ctx, KeyUserID)
}

func (s *Session) Role(ctx context.Context) string {
	return s.get(ctx, KeyUserRole)
}

func (s *Session) Token(ctx context.Context) string {
	return s.get(ctx, KeyToken)
}

// Logout forgets the signed-in user. The cart is left alone.
func (s *Session) Logout(ctx context.Context) error {
	err := multierr.Combine(
		s.storage.Delete(ctx, KeyUserID),
		s.storage.Delete(ctx, KeyUserRole),
		s.storage.Delete(ctx, KeyToken),
	)
	s.bus.Publish(events.ProfileUpdated, Profile{})
	return err
}

func (s *Session) get(ctx context.Context, key string) string {
	v, _, err := s.storage.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("failed to read session")
		return ""
	}
	return v
}
