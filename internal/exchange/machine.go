package exchange

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"finderguard/internal/models"
	"finderguard/internal/notify"
	"finderguard/internal/timeutil"
	"finderguard/internal/trust"
)

// DefaultTimeout is the handover window started by the founder.
const DefaultTimeout = 300 * time.Second

const (
	deadlineCallTimeout = 10 * time.Second
	// deadlineRetryDelay is how long a failed expiry waits before the next
	// attempt.
	deadlineRetryDelay = 5 * time.Second
)

// Logger is a minimal logger interface required by the machine.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Store persists matches and applies terminal transitions atomically.
// Every write is a compare-and-set on the stored exchange status and returns
// models.ErrStaleWrite when the stored status no longer matches.
type Store interface {
	GetMatch(ctx context.Context, id string) (models.Match, error)
	GetItem(ctx context.Context, id string) (models.Item, error)
	ListAwaitingOwner(ctx context.Context) ([]models.Match, error)
	// StartExchange stores m if the stored exchange status is still none.
	StartExchange(ctx context.Context, m models.Match) error
	// CompleteExchange stores m, deletes both items and applies adjust to the
	// founder profile in one transaction.
	CompleteExchange(ctx context.Context, m models.Match, adjust func(models.Profile) models.Profile) error
	// ExpireExchange stores m, reopens both items and applies adjust to the
	// founder profile in one transaction.
	ExpireExchange(ctx context.Context, m models.Match, adjust func(models.Profile) models.Profile) error
}

// Scheduler arranges for a deadline callback per match.
type Scheduler interface {
	Schedule(ctx context.Context, matchID string, deadline time.Time) error
	Cancel(ctx context.Context, matchID string) error
}

// Notifier delivers exchange events to users.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event) error
}

// Config holds exchange settings.
type Config struct {
	// Timeout is the time the owner has to confirm after the founder
	// handed the item over.
	Timeout time.Duration
}

// Snapshot is the exchange view of a match at a point in time.
type Snapshot struct {
	Match            models.Match `json:"match"`
	Deadline         *time.Time   `json:"deadline,omitempty"`
	RemainingSeconds int          `json:"remaining_seconds"`
}

// Machine drives the exchange lifecycle of matches.
type Machine struct {
	store     Store
	scheduler Scheduler
	notifier  Notifier
	clock     timeutil.Clock
	logger    Logger
	timeout   time.Duration
	locks     *keyedMutex
}

// NewMachine creates a machine. scheduler and notifier may be nil.
func NewMachine(store Store, scheduler Scheduler, notifier Notifier, clock timeutil.Clock, logger Logger, cfg Config) *Machine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if clock == nil {
		clock = timeutil.System{}
	}
	return &Machine{
		store:     store,
		scheduler: scheduler,
		notifier:  notifier,
		clock:     clock,
		logger:    logger,
		timeout:   cfg.Timeout,
		locks:     newKeyedMutex(),
	}
}

// FounderConfirm starts the countdown after the founder handed the item over.
func (m *Machine) FounderConfirm(ctx context.Context, matchID, userID string) (models.Match, error) {
	unlock := m.locks.Lock(matchID)
	defer unlock()

	match, err := m.loadMatch(ctx, matchID)
	if err != nil {
		return models.Match{}, err
	}
	if userID == "" || userID != match.FoundUserID {
		return match, ErrNotFounder
	}
	if err := checkTransition(match.ExchangeStatus, StatusFounderConfirmed); err != nil {
		return match, err
	}
	if match.Status != models.MatchStatusAccepted {
		return match, ErrMatchNotAccepted
	}
	if err := m.checkItems(ctx, match); err != nil {
		return match, err
	}

	now := m.clock.Now()
	next := match.Clone()
	next.ExchangeStatus = StatusFounderConfirmed
	next.ExchangeStartTime = &now
	next.ExchangeConfirmedBy = []string{userID}
	if err := m.store.StartExchange(ctx, next); err != nil {
		return match, storeError("start exchange", err)
	}

	deadline := now.Add(m.timeout)
	if m.scheduler != nil {
		if err := m.scheduler.Schedule(ctx, matchID, deadline); err != nil {
			m.errorf("exchange %s: schedule deadline: %v", matchID, err)
		}
	}
	m.infof("exchange %s started by %s, deadline %s", matchID, userID, deadline.Format(time.RFC3339))
	m.send(ctx, notify.Event{
		Type:   notify.EventExchangeStarted,
		UserID: next.LostUserID,
		Title:  "Item handed over",
		Body:   fmt.Sprintf("Confirm you received your item within %d minutes", int(m.timeout.Minutes())),
		Data:   map[string]string{"match_id": matchID, "deadline": deadline.Format(time.RFC3339)},
	})
	return next, nil
}

// OwnerConfirm completes the exchange when the owner confirms in time.
// A confirmation after the deadline expires the exchange and returns
// ErrExchangeExpired.
func (m *Machine) OwnerConfirm(ctx context.Context, matchID, userID string) (models.Match, error) {
	unlock := m.locks.Lock(matchID)
	defer unlock()

	match, err := m.loadMatch(ctx, matchID)
	if err != nil {
		return models.Match{}, err
	}
	if userID == "" || userID != match.LostUserID {
		return match, ErrNotOwner
	}
	if err := checkTransition(match.ExchangeStatus, StatusCompleted); err != nil {
		return match, err
	}

	now := m.clock.Now()
	if now.After(m.deadline(match)) {
		expired, err := m.expireLocked(ctx, match)
		if err != nil {
			return match, err
		}
		return expired, ErrExchangeExpired
	}
	if err := m.checkItems(ctx, match); err != nil {
		return match, err
	}

	next := match.Clone()
	next.ExchangeConfirmedBy = append(next.ExchangeConfirmedBy, userID)
	next.Status = models.MatchStatusCompleted
	next.ExchangeStatus = StatusCompleted
	if err := m.store.CompleteExchange(ctx, next, trust.ApplySuccess); err != nil {
		return match, storeError("complete exchange", err)
	}
	m.cancel(ctx, matchID)

	m.infof("exchange %s completed", matchID)
	for _, uid := range []string{next.FoundUserID, next.LostUserID} {
		m.send(ctx, notify.Event{
			Type:   notify.EventExchangeCompleted,
			UserID: uid,
			Title:  "Exchange completed",
			Body:   "The item is back with its owner",
			Data:   map[string]string{"match_id": matchID},
		})
	}
	return next, nil
}

// Expire marks an overdue exchange as expired and penalises the founder.
func (m *Machine) Expire(ctx context.Context, matchID string) (models.Match, error) {
	unlock := m.locks.Lock(matchID)
	defer unlock()

	match, err := m.loadMatch(ctx, matchID)
	if err != nil {
		return models.Match{}, err
	}
	if err := checkTransition(match.ExchangeStatus, StatusExpired); err != nil {
		return match, err
	}
	if !m.clock.Now().After(m.deadline(match)) {
		return match, ErrNotDue
	}
	return m.expireLocked(ctx, match)
}

func (m *Machine) expireLocked(ctx context.Context, match models.Match) (models.Match, error) {
	next := match.Clone()
	next.ExchangeStatus = StatusExpired
	if err := m.store.ExpireExchange(ctx, next, trust.ApplyFailure); err != nil {
		return match, storeError("expire exchange", err)
	}
	m.cancel(ctx, match.ID)

	m.infof("exchange %s expired", match.ID)
	for _, uid := range []string{next.FoundUserID, next.LostUserID} {
		m.send(ctx, notify.Event{
			Type:   notify.EventExchangeExpired,
			UserID: uid,
			Title:  "Exchange expired",
			Body:   "The handover was not confirmed in time",
			Data:   map[string]string{"match_id": match.ID},
		})
	}
	return next, nil
}

// HandleDeadline is the scheduler callback for a match deadline.
func (m *Machine) HandleDeadline(matchID string) {
	ctx, cancel := context.WithTimeout(context.Background(), deadlineCallTimeout)
	defer cancel()

	match, err := m.Expire(ctx, matchID)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotDue):
		if m.scheduler == nil {
			return
		}
		if err := m.scheduler.Schedule(ctx, matchID, m.deadline(match)); err != nil {
			m.errorf("exchange %s: reschedule deadline: %v", matchID, err)
		}
	case errors.Is(err, ErrExchangeCompleted), errors.Is(err, ErrExchangeExpired),
		errors.Is(err, ErrExchangeNotStarted), errors.Is(err, models.ErrMatchNotFound):
		// nothing to expire; drop a leftover durable entry
		m.cancel(ctx, matchID)
	case errors.Is(err, ErrConcurrentTransition):
		// the competing transition owns the outcome
		m.infof("exchange %s: deadline raced another transition", matchID)
	default:
		m.errorf("exchange %s: deadline: %v", matchID, err)
		if m.scheduler == nil {
			return
		}
		retryAt := m.clock.Now().Add(deadlineRetryDelay)
		if err := m.scheduler.Schedule(ctx, matchID, retryAt); err != nil {
			m.errorf("exchange %s: schedule deadline retry: %v", matchID, err)
		}
	}
}

// Status returns the exchange view of a match with the remaining countdown.
func (m *Machine) Status(ctx context.Context, matchID string) (Snapshot, error) {
	match, err := m.loadMatch(ctx, matchID)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Match: match}
	if match.ExchangeStartTime != nil {
		deadline := m.deadline(match)
		snap.Deadline = &deadline
	}
	if match.ExchangeStatus == StatusFounderConfirmed {
		snap.RemainingSeconds = remainingSeconds(m.deadline(match), m.clock.Now())
	}
	return snap, nil
}

// Resume re-arms the countdown of every exchange waiting for the owner and
// expires the overdue ones.
func (m *Machine) Resume(ctx context.Context) error {
	pending, err := m.store.ListAwaitingOwner(ctx)
	if err != nil {
		return fmt.Errorf("exchange resume: %w", err)
	}
	var armed, expired int
	for _, match := range pending {
		deadline := m.deadline(match)
		if m.clock.Now().After(deadline) {
			if _, err := m.Expire(ctx, match.ID); err != nil {
				m.errorf("exchange %s: resume expiry: %v", match.ID, err)
				continue
			}
			expired++
			continue
		}
		if m.scheduler == nil {
			continue
		}
		if err := m.scheduler.Schedule(ctx, match.ID, deadline); err != nil {
			m.errorf("exchange %s: resume schedule: %v", match.ID, err)
			continue
		}
		armed++
	}
	m.infof("exchange resume: %d countdowns re-armed, %d expired", armed, expired)
	return nil
}

// deadline returns the confirmation deadline of a started exchange. A
// started exchange without a start time is treated as overdue.
func (m *Machine) deadline(match models.Match) time.Time {
	if match.ExchangeStartTime == nil {
		return time.Time{}
	}
	return match.ExchangeStartTime.Add(m.timeout)
}

func remainingSeconds(deadline, now time.Time) int {
	left := deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

func (m *Machine) loadMatch(ctx context.Context, id string) (models.Match, error) {
	match, err := m.store.GetMatch(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNoRecord) {
			return models.Match{}, models.ErrMatchNotFound
		}
		return models.Match{}, fmt.Errorf("load match %s: %w", id, err)
	}
	return match, nil
}

func (m *Machine) checkItems(ctx context.Context, match models.Match) error {
	for _, id := range []string{match.LostItemID, match.FoundItemID} {
		if _, err := m.store.GetItem(ctx, id); err != nil {
			if errors.Is(err, models.ErrNoRecord) {
				return ErrStaleMatch
			}
			return fmt.Errorf("load item %s: %w", id, err)
		}
	}
	return nil
}

func (m *Machine) cancel(ctx context.Context, matchID string) {
	if m.scheduler == nil {
		return
	}
	if err := m.scheduler.Cancel(ctx, matchID); err != nil {
		m.errorf("exchange %s: cancel deadline: %v", matchID, err)
	}
}

func (m *Machine) send(ctx context.Context, ev notify.Event) {
	if m.notifier == nil || ev.UserID == "" {
		return
	}
	if err := m.notifier.Notify(ctx, ev); err != nil {
		m.errorf("notify %s about %s: %v", ev.UserID, ev.Type, err)
	}
}

func storeError(op string, err error) error {
	if errors.Is(err, models.ErrStaleWrite) {
		return ErrConcurrentTransition
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (m *Machine) infof(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Infof(format, args...)
	}
}

func (m *Machine) errorf(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Errorf(format, args...)
	}
}
