// Package domain defines the business logic of the booking service.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"example.com/booking/internal/observability"
)

// EnrollmentStore captures the persistence operations behind the ledger.
//
// Enroll must run the precondition checks and the insert as one isolated
// unit of work scoped to the activity, in this order: consumer exists,
// activity exists, activity open, no existing (consumer, activity) row,
// seats left. It returns the matching sentinel error on the first failed
// check and persists nothing in that case.
//
// Cancel must fail with ErrEnrollmentNotFound or ErrForbidden before
// deleting anything. cancelledAt stamps the cancellation event.
type EnrollmentStore interface {
	Enroll(ctx context.Context, enrollment Enrollment) (int64, error)
	Cancel(ctx context.Context, enrollmentID, requesterID int64, cancelledAt time.Time) error
	ListByConsumer(ctx context.Context, consumerID int64) ([]EnrollmentView, error)
}

// LedgerOption configures optional behaviour for the Ledger.
type LedgerOption func(*Ledger)

// WithClock overrides the time source used for cancellations and for
// enrollments that carry no requested time.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithLedgerLogger overrides the logger used to report storage failures.
func WithLedgerLogger(logger zerolog.Logger) LedgerOption {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithUnitTimeout bounds every enroll/cancel unit of work.
func WithUnitTimeout(timeout time.Duration) LedgerOption {
	return func(l *Ledger) {
		l.timeout = timeout
	}
}

// Ledger records consumer enrollments while enforcing uniqueness, capacity
// and availability.
type Ledger struct {
	store   EnrollmentStore
	now     func() time.Time
	timeout time.Duration
	logger  zerolog.Logger
}

// NewLedger constructs a Ledger over the provided store.
func NewLedger(store EnrollmentStore, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:  store,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryEnroll enrolls consumerID into activityID and returns the new enrollment
// id. requestedAt is used as the enrollment time when set.
func (l *Ledger) TryEnroll(ctx context.Context, consumerID, activityID int64, requestedAt *time.Time) (int64, error) {
	if consumerID <= 0 {
		return 0, ErrInvalidConsumer
	}

	enrolledAt := l.now().UTC()
	if requestedAt != nil && !requestedAt.IsZero() {
		enrolledAt = requestedAt.UTC()
	}

	ctx, cancel := l.unitContext(ctx)
	defer cancel()

	start := time.Now()
	id, err := l.store.Enroll(ctx, Enrollment{
		ConsumerID: consumerID,
		ActivityID: activityID,
		EnrolledAt: enrolledAt,
	})
	observability.ObserveEnrollment(enrollOutcome(err), time.Since(start))
	if err != nil {
		return 0, l.classify(err, "enroll", consumerID, activityID)
	}

	l.logger.Debug().
		Int64("enrollment_id", id).
		Int64("consumer_id", consumerID).
		Int64("activity_id", activityID).
		Msg("enrollment recorded")
	return id, nil
}

// Cancel removes enrollmentID on behalf of requesterID, who must own it.
func (l *Ledger) Cancel(ctx context.Context, enrollmentID, requesterID int64) error {
	if enrollmentID <= 0 {
		return ErrEnrollmentNotFound
	}

	ctx, cancel := l.unitContext(ctx)
	defer cancel()

	err := l.store.Cancel(ctx, enrollmentID, requesterID, l.now().UTC())
	observability.ObserveCancellation(cancelOutcome(err))
	if err != nil {
		return l.classify(err, "cancel", requesterID, enrollmentID)
	}
	return nil
}

// ListByConsumer returns every enrollment held by consumerID. It never
// returns a nil slice.
func (l *Ledger) ListByConsumer(ctx context.Context, consumerID int64) ([]EnrollmentView, error) {
	views, err := l.store.ListByConsumer(ctx, consumerID)
	if err != nil {
		return nil, l.classify(err, "list", consumerID, 0)
	}
	if views == nil {
		views = []EnrollmentView{}
	}
	return views, nil
}

func (l *Ledger) unitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout > 0 {
		return context.WithTimeout(ctx, l.timeout)
	}
	return ctx, func() {}
}

// classify passes business outcomes through and folds everything else into
// ErrStorageFailure after logging the cause.
func (l *Ledger) classify(err error, op string, userID, targetID int64) error {
	if IsPrecondition(err) {
		return err
	}
	if errors.Is(err, ErrStorageFailure) {
		return err
	}
	l.logger.Error().
		Err(err).
		Str("op", op).
		Int64("user_id", userID).
		Int64("target_id", targetID).
		Msg("ledger: storage failure")
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}

func enrollOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrInvalidConsumer):
		return "invalid_consumer"
	case errors.Is(err, ErrActivityNotFound):
		return "activity_not_found"
	case errors.Is(err, ErrActivityClosed):
		return "activity_closed"
	case errors.Is(err, ErrDuplicateEnrollment):
		return "duplicate"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	default:
		return "storage_failure"
	}
}

func cancelOutcome(err error) string {
	switch {
	case err == nil:
		return "cancelled"
	case errors.Is(err, ErrEnrollmentNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "storage_failure"
	}
}
