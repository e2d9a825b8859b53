package liveness

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"supportdesk-backend/internal/domain"
	"supportdesk-backend/pkg/metrics"
)

// StaleStore is the demotion path for conversations whose heartbeat
// has lapsed. DemoteIfStale must re-check the staleness condition at
// write time so a heartbeat racing the sweep wins.
type StaleStore interface {
	ListStaleActive(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	DemoteIfStale(ctx context.Context, conversationID uuid.UUID, cutoff time.Time) (bool, error)
}

// Monitor periodically demotes ACTIVE conversations with no recent
// activity to INACTIVE. ENDED conversations are never touched.
type Monitor struct {
	store     StaleStore
	logger    *zap.Logger
	staleness time.Duration
	interval  time.Duration

	clock func() time.Time
}

// NewMonitor creates a liveness monitor. staleness is how long an
// ACTIVE conversation may go without a heartbeat or message before it
// is demoted; interval is how often the sweep runs.
func NewMonitor(store StaleStore, staleness, interval time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		store:     store,
		logger:    logger,
		staleness: staleness,
		interval:  interval,
		clock:     time.Now,
	}
}

// Run sweeps on a ticker until the context is cancelled. Intended to
// run as a single background goroutine per process; overlapping
// processes are harmless because demotion is conditional.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("liveness monitor started",
		zap.Duration("staleness", m.staleness),
		zap.Duration("interval", m.interval),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("liveness monitor stopped")
			return
		case <-ticker.C:
			demoted, err := m.Sweep(ctx)
			if err != nil {
				m.logger.Error("sweep failed", zap.Error(err))
				continue
			}
			if demoted > 0 {
				m.logger.Info("sweep demoted conversations", zap.Int("count", demoted))
			}
		}
	}
}

// Sweep runs one pass: list ACTIVE conversations whose lastActiveAt is
// older than the staleness cutoff, then demote each with a conditional
// update. A conversation that received a heartbeat between the list
// and the demote stays ACTIVE. Returns the number demoted; a failure
// on one conversation does not stop the rest.
func (m *Monitor) Sweep(ctx context.Context) (int, error) {
	metrics.SweepRunsTotal.Inc()
	cutoff := m.clock().UTC().Add(-m.staleness)

	stale, err := m.store.ListStaleActive(ctx, cutoff)
	if err != nil {
		metrics.SweepErrorsTotal.Inc()
		return 0, err
	}

	demoted := 0
	for _, conversationID := range stale {
		ok, err := m.store.DemoteIfStale(ctx, conversationID, cutoff)
		if err != nil {
			metrics.SweepErrorsTotal.Inc()
			m.logger.Error("failed to demote stale conversation",
				zap.String("conversation_id", conversationID.String()),
				zap.Error(err),
			)
			continue
		}
		if ok {
			demoted++
			metrics.SweepDemotedTotal.Inc()
			metrics.ConversationStatusTransitionTotal.WithLabelValues(string(domain.StatusInactive)).Inc()
		}
	}

	return demoted, nil
}
