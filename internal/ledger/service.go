package ledger

import (
	"log/slog"
	"strings"
	"time"

	"artifactlive.org/internal/obs"
)

// Service is the account registry and ledger engine. It is the only path
// through which entries are created.
type Service struct {
	store Store
	now   func() time.Time
	log   *slog.Logger
}

// Option configures Service.
type Option func(*Service)

// WithClock overrides the posting clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger overrides the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService constructs a Service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		log:   obs.Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store for read-only collaborators.
func (s *Service) Store() Store { return s.store }

func checkOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return invalid("owner is required")
	}
	return nil
}
