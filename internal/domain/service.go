// Package domain defines the roster rules for the activity signup service.
package domain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/signup/internal/auth"
	"example.com/signup/internal/cache"
	"example.com/signup/internal/events"
	"example.com/signup/internal/observability"
)

// Repository holds activity rosters. AddParticipant and RemoveParticipant must apply the
// check and the mutation atomically and return the updated activity.
type Repository interface {
	List(ctx context.Context) ([]Activity, error)
	AddParticipant(ctx context.Context, activity, email string) (Activity, error)
	RemoveParticipant(ctx context.Context, activity, email string) (Activity, error)
}

// EventPublisher receives roster events once a mutation has been applied.
type EventPublisher interface {
	Publish(ctx context.Context, event events.RosterEvent) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, events.RosterEvent) error { return nil }

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithPublisher routes roster events to publisher.
func WithPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

// WithInvalidator purges cached listings after each mutation.
func WithInvalidator(invalidator cache.Invalidator) Option {
	return func(s *Service) {
		if invalidator != nil {
			s.invalidator = invalidator
		}
	}
}

// WithLogger overrides the logger used to report side-effect failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInvalidationTimeout bounds each cache invalidation call.
func WithInvalidationTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.invalidationTimeout = timeout
		}
	}
}

// Service orchestrates roster workflows.
type Service struct {
	repo                Repository
	publisher           EventPublisher
	invalidator         cache.Invalidator
	logger              *zap.Logger
	invalidationTimeout time.Duration
	now                 func() time.Time
	pending             sync.WaitGroup
}

// NewService constructs a Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:                repo,
		publisher:           noopPublisher{},
		invalidator:         cache.NoopInvalidator{},
		logger:              zap.NewNop(),
		invalidationTimeout: 5 * time.Second,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListActivities returns every activity with its current roster.
func (s *Service) ListActivities(ctx context.Context) ([]Activity, error) {
	return s.repo.List(ctx)
}

// Signup adds email to the roster of the named activity.
func (s *Service) Signup(ctx context.Context, activity, email string) (Confirmation, error) {
	updated, err := s.repo.AddParticipant(ctx, activity, email)
	observability.RecordSignup(activity, outcomeOf(err))
	if err != nil {
		return Confirmation{}, err
	}

	event := events.NewParticipantSignedUp(activity, email, len(updated.Participants), s.now())
	s.afterMutation(ctx, event)
	return Confirmation{
		Activity: activity,
		Email:    email,
		Message:  fmt.Sprintf("Signed up %s for %s", email, activity),
	}, nil
}

// Unregister removes email from the roster of the named activity.
func (s *Service) Unregister(ctx context.Context, activity, email string) (Confirmation, error) {
	updated, err := s.repo.RemoveParticipant(ctx, activity, email)
	observability.RecordUnregister(activity, outcomeOf(err))
	if err != nil {
		return Confirmation{}, err
	}

	event := events.NewParticipantUnregistered(activity, email, len(updated.Participants), s.now())
	s.afterMutation(ctx, event)
	return Confirmation{
		Activity: activity,
		Email:    email,
		Message:  fmt.Sprintf("Unregistered %s from %s", email, activity),
	}, nil
}

// Wait blocks until in-flight cache invalidations have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// afterMutation runs side effects. Failures are logged, the roster change stands.
func (s *Service) afterMutation(ctx context.Context, event events.RosterEvent) {
	event.Actor = auth.Actor(ctx)
	observability.RecordRosterSize(event.Activity, event.RosterSize)
	observability.RecordMutation(event.OccurredAt)

	logger := s.logger.With(
		zap.String("event_type", event.EventType),
		zap.String("activity", event.Activity),
		zap.String("actor", event.Actor),
	)
	logger.Debug("roster updated", zap.Int("roster_size", event.RosterSize))

	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warn("publish roster event", zap.String("event_id", event.EventID), zap.Error(err))
	}

	s.pending.Add(1)
	go func(activity string) {
		defer s.pending.Done()
		invCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.invalidationTimeout)
		defer cancel()
		if err := s.invalidator.Invalidate(invCtx, activity); err != nil {
			s.logger.Warn("cache invalidation", zap.String("activity", activity), zap.Error(err))
		}
	}(event.Activity)
}

func outcomeOf(err error) string {
	if err == nil {
		return observability.OutcomeOK
	}
	switch KindOf(err) {
	case KindNotFound:
		return observability.OutcomeNotFound
	case KindConflict:
		return observability.OutcomeConflict
	default:
		return observability.OutcomeError
	}
}
