// Package worker runs background reconciliation of a ledger shared with
// other processes.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"vogon/internal/amqp"
	"vogon/internal/core"
	"vogon/internal/events"
	"vogon/internal/interop"
	"vogon/internal/log"
	"vogon/internal/services"
	"vogon/internal/storage"
)

// Ledger is the part of services.LedgerService the reconciler drives.
type Ledger interface {
	Reload(ctx context.Context) error
	Cleanup(ctx context.Context) (services.CleanupResult, error)
	RefreshAccountBalance(ctx context.Context, id int64) (core.Amount, error)
	RefreshAllBalances(ctx context.Context) error
	Export(ctx context.Context, exporter interop.Exporter) error
}

var _ Ledger = (*services.LedgerService)(nil)

// ReconcilerConfig holds configuration for the reconciler
type ReconcilerConfig struct {
	// Interval is how often pending changes are reconciled (default: 30s)
	Interval time.Duration

	// FullEvery forces a pass every N ticks even without changes. Zero
	// disables forced passes.
	FullEvery int

	// Mirror receives a full export after every successful pass, e.g. a
	// Google spreadsheet. Optional.
	Mirror interop.Exporter
}

// DefaultReconcilerConfig returns sensible defaults
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Interval:  30 * time.Second,
		FullEvery: 120,
	}
}

// Stats describes the work done so far.
type Stats struct {
	Runs     int64
	Failures int64
	// Partial counts passes limited to the accounts named by events.
	Partial int64
	Events  int64
	LastRun time.Time
	LastErr error
}

// Reconciler collects change events and, once per interval, reloads the
// ledger and repairs it. When the collected events only name accounts, the
// pass recalculates those accounts; otherwise it removes orphan components
// and recalculates every balance.
type Reconciler struct {
	ledger Ledger
	config ReconcilerConfig

	changes    *changeSet
	dispatcher *events.Dispatcher
	dirty      atomic.Bool
	events     atomic.Int64

	statsMu sync.Mutex
	stats   Stats

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReconciler(ledger Ledger, config ReconcilerConfig) *Reconciler {
	if config.Interval <= 0 {
		config.Interval = DefaultReconcilerConfig().Interval
	}
	changes := newChangeSet()
	return &Reconciler{
		ledger:     ledger,
		config:     config,
		changes:    changes,
		dispatcher: events.NewDispatcher(changes.handlers()),
	}
}

// HandleMessage is an amqp.Handler. It replays the event into the pending
// change set; the work happens on the next tick.
func (r *Reconciler) HandleMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	r.events.Add(1)
	events.Replay(r.dispatcher, msg.Event)
	r.dirty.Store(true)
	slog.DebugContext(ctx, "Ledger change received",
		log.FieldComponent, log.ComponentWorker,
		log.FieldMessageID, msg.ID,
		log.FieldEvent, msg.Event.String(),
		log.FieldSource, msg.Source)
	return nil
}

// Pending reports whether changes arrived since the last pass.
func (r *Reconciler) Pending() bool {
	return r.dirty.Load()
}

// Start begins the reconcile loop. Returns an error if already running.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("reconciler is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	slog.InfoContext(ctx, "Reconciler started",
		log.FieldComponent, log.ComponentWorker,
		"interval", r.config.Interval)
	return nil
}

// Stop gracefully stops the reconciler and waits for the current pass.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Reconciler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reconciler stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

// IsRunning returns whether the reconciler is currently running
func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Stats returns a copy of the counters.
func (r *Reconciler) Stats() Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	s := r.stats
	s.Events = r.events.Load()
	return s
}

func (r *Reconciler) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	// Catch up with whatever happened while the worker was down.
	r.pass(ctx)

	ticks := 0
	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			ticks++
			forced := r.config.FullEvery > 0 && ticks%r.config.FullEvery == 0
			if forced {
				r.changes.markFull()
			}
			if r.dirty.Load() || forced {
				r.pass(ctx)
			}
		}
	}
}

func (r *Reconciler) pass(ctx context.Context) {
	if err := r.ReconcileNow(ctx); err != nil {
		slog.ErrorContext(ctx, "Reconcile failed", log.NewFields().
			WithComponent(log.ComponentWorker).
			WithOperation(log.OpReconcile).
			WithError(err).
			ToSlice()...)
	}
}

// ReconcileNow runs one pass immediately. A failed pass leaves the
// pending flag set and turns the retry into a full pass.
func (r *Reconciler) ReconcileNow(ctx context.Context) error {
	start := time.Now()
	r.dirty.Store(false)
	full, accounts := r.changes.take()

	err := r.reconcile(ctx, full, accounts)

	r.statsMu.Lock()
	r.stats.Runs++
	r.stats.LastRun = start
	r.stats.LastErr = err
	if err != nil {
		r.stats.Failures++
	} else if !full {
		r.stats.Partial++
	}
	r.statsMu.Unlock()

	if err != nil {
		r.changes.markFull()
		r.dirty.Store(true)
		return err
	}
	return nil
}

func (r *Reconciler) reconcile(ctx context.Context, full bool, accounts []int64) error {
	start := time.Now()
	if err := r.ledger.Reload(ctx); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if !full {
		return r.refreshAccounts(ctx, accounts, start)
	}
	res, err := r.ledger.Cleanup(ctx)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	if err := r.ledger.RefreshAllBalances(ctx); err != nil {
		return fmt.Errorf("recalculate balances: %w", err)
	}
	if err := r.mirror(ctx); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Ledger reconciled",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpReconcile,
		log.FieldCount, res.OrphanComponents,
		log.FieldCreated, res.Rates.Created,
		log.FieldRemoved, res.Rates.Removed,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// refreshAccounts recalculates the given accounts. Accounts deleted since
// the event was published are skipped.
func (r *Reconciler) refreshAccounts(ctx context.Context, accounts []int64, start time.Time) error {
	for _, id := range accounts {
		if _, err := r.ledger.RefreshAccountBalance(ctx, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return fmt.Errorf("recalculate account %d: %w", id, err)
		}
	}
	if err := r.mirror(ctx); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Accounts reconciled",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpReconcile,
		log.FieldCount, len(accounts),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (r *Reconciler) mirror(ctx context.Context) error {
	if r.config.Mirror != nil {
		if err := r.ledger.Export(ctx, r.config.Mirror); err != nil {
			return fmt.Errorf("mirror: %w", err)
		}
	}
	return nil
}
