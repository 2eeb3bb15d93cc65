package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sparklecrew/sparkle-be/internal/monitor/domain"
	"github.com/sparklecrew/sparkle-be/internal/monitor/schedule"
	"github.com/sparklecrew/sparkle-be/internal/telemetry"
)

// Store is the persistence surface the runner needs. Candidate queries
// apply the eligibility filters (in progress, not cancelled, cleaner
// assigned, deadline window); the write methods report whether a guarded
// update actually matched, so overlapping runs degrade to no-ops instead
// of double-firing.
type Store interface {
	MonitorSettings(ctx context.Context) (Settings, error)

	ReminderCandidateBookings(ctx context.Context, now time.Time) ([]domain.Booking, error)
	ReminderCandidateAssignments(ctx context.Context, now time.Time) ([]domain.CleanerAssignment, error)
	CompletionCandidateBookings(ctx context.Context, now time.Time) ([]domain.Booking, error)
	CompletionCandidateAssignments(ctx context.Context, now time.Time) ([]domain.CleanerAssignment, error)

	SetBookingDeadline(ctx context.Context, id string, deadline time.Time) error
	SetAssignmentDeadline(ctx context.Context, id string, deadline time.Time) error

	MarkBookingReminderSent(ctx context.Context, id string, ordinal int, sentAt time.Time) (bool, error)
	MarkAssignmentReminderSent(ctx context.Context, id string, ordinal int, sentAt time.Time) (bool, error)

	SubmitBookingForReview(ctx context.Context, id string, c Completion) (bool, error)
	SubmitAssignmentForReview(ctx context.Context, id string, c Completion) (bool, error)
}

// Notifier delivers the side-effecting notifications. Implementations are
// best-effort: they log their own failures and never return an error to
// the run.
type Notifier interface {
	ReminderDue(ctx context.Context, rec domain.CompletionRecord, ordinal int, now, deadline time.Time)
	AutoCompleted(ctx context.Context, rec domain.CompletionRecord, c Completion)
}

// Summary aggregates the outcome of one monitor pass.
type Summary struct {
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	RemindersSent int       `json:"reminders_sent"`
	AutoCompleted int       `json:"auto_completed"`
	Errors        int       `json:"errors"`
}

func (s *Summary) merge(other Summary) {
	s.RemindersSent += other.RemindersSent
	s.AutoCompleted += other.AutoCompleted
	s.Errors += other.Errors
}

// RunnerConfig collects the runner dependencies.
type RunnerConfig struct {
	Store    Store
	Notifier Notifier
	Logger   *slog.Logger
	Interval time.Duration
	// Now overrides the clock; nil means time.Now. Tests inject a fixed
	// instant here.
	Now func() time.Time
}

// Runner drives the periodic monitor sweep.
type Runner struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	running atomic.Bool

	mu   sync.Mutex
	last *Summary
}

const defaultInterval = 5 * time.Minute

func NewRunner(cfg RunnerConfig) *Runner {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		store:    cfg.Store,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		interval: interval,
		now:      now,
	}
}

// Start runs one sweep immediately, then on every tick until the context
// is cancelled. A tick that arrives while a sweep is still in flight is
// skipped rather than queued.
func (r *Runner) Start(ctx context.Context) error {
	r.logger.Info("Auto-complete monitor started",
		slog.Duration("interval", r.interval),
	)

	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Warn("Initial monitor run skipped", slog.Any("error", err))
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Auto-complete monitor stopping - context canceled")
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Warn("Monitor tick skipped", slog.Any("error", err))
			}
		}
	}
}

// RunOnce performs a single sweep. It returns ErrRunInProgress when a
// previous sweep has not finished; every other failure mode is absorbed
// into the summary's error count.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	if !r.running.CompareAndSwap(false, true) {
		telemetry.RunsSkipped.Inc()
		return Summary{}, domain.ErrRunInProgress
	}
	defer r.running.Store(false)

	now := r.now()
	summary := r.sweep(ctx, now)

	telemetry.RemindersSent.Add(float64(summary.RemindersSent))
	telemetry.AutoCompleted.Add(float64(summary.AutoCompleted))
	telemetry.RecordErrors.Add(float64(summary.Errors))
	telemetry.LastRunTimestamp.Set(float64(summary.FinishedAt.Unix()))
	telemetry.RunDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())

	r.mu.Lock()
	r.last = &summary
	r.mu.Unlock()

	r.logger.Info("Monitor run finished",
		slog.Int("reminders_sent", summary.RemindersSent),
		slog.Int("auto_completed", summary.AutoCompleted),
		slog.Int("errors", summary.Errors),
		slog.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

// LastSummary returns the most recent run summary, if any run has finished.
func (r *Runner) LastSummary() (Summary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Summary{}, false
	}
	return *r.last, true
}

// population binds one record shape to its store operations so the sweep
// body is written once for both shapes.
type population struct {
	name         string
	records      []domain.CompletionRecord
	setDeadline  func(ctx context.Context, id string, deadline time.Time) error
	markReminder func(ctx context.Context, id string, ordinal int, sentAt time.Time) (bool, error)
	submit       func(ctx context.Context, id string, c Completion) (bool, error)
}

func (r *Runner) sweep(ctx context.Context, now time.Time) Summary {
	summary := Summary{StartedAt: now}

	settings, err := r.store.MonitorSettings(ctx)
	if err != nil {
		r.logger.Warn("Failed to load monitor settings, using defaults", slog.Any("error", err))
		settings = DefaultSettings()
	}

	// Reminders run before completions so a record always sees its final
	// reminder window ahead of the forced transition. The candidate
	// filters keep the two phases disjoint for any single record: a
	// deadline in the future means reminders only, a deadline reached
	// means completion only.
	summary.merge(r.runPhases(ctx, now, settings, r.reminderPopulations(ctx, now, &summary), r.sweepReminders))
	summary.merge(r.runPhases(ctx, now, settings, r.completionPopulations(ctx, now, &summary), r.sweepCompletions))

	summary.FinishedAt = r.now()
	return summary
}

func (r *Runner) reminderPopulations(ctx context.Context, now time.Time, summary *Summary) []population {
	var pops []population

	bookings, err := r.store.ReminderCandidateBookings(ctx, now)
	if err != nil {
		r.logger.Error("Failed to query reminder candidate bookings", slog.Any("error", err))
		summary.Errors++
	} else {
		pops = append(pops, population{
			name:         "bookings",
			records:      asRecords(bookings),
			setDeadline:  r.store.SetBookingDeadline,
			markReminder: r.store.MarkBookingReminderSent,
		})
	}

	assignments, err := r.store.ReminderCandidateAssignments(ctx, now)
	if err != nil {
		r.logger.Error("Failed to query reminder candidate assignments", slog.Any("error", err))
		summary.Errors++
	} else {
		pops = append(pops, population{
			name:         "assignments",
			records:      asRecords(assignments),
			setDeadline:  r.store.SetAssignmentDeadline,
			markReminder: r.store.MarkAssignmentReminderSent,
		})
	}

	return pops
}

func (r *Runner) completionPopulations(ctx context.Context, now time.Time, summary *Summary) []population {
	var pops []population

	bookings, err := r.store.CompletionCandidateBookings(ctx, now)
	if err != nil {
		r.logger.Error("Failed to query completion candidate bookings", slog.Any("error", err))
		summary.Errors++
	} else {
		pops = append(pops, population{
			name:    "bookings",
			records: asRecords(bookings),
			submit:  r.store.SubmitBookingForReview,
		})
	}

	assignments, err := r.store.CompletionCandidateAssignments(ctx, now)
	if err != nil {
		r.logger.Error("Failed to query completion candidate assignments", slog.Any("error", err))
		summary.Errors++
	} else {
		pops = append(pops, population{
			name:    "assignments",
			records: asRecords(assignments),
			submit:  r.store.SubmitAssignmentForReview,
		})
	}

	return pops
}

// runPhases evaluates the populations of one phase concurrently. The two
// record shapes live in disjoint tables, so this is safe; mutations to any
// single record stay serialized by the guarded updates.
func (r *Runner) runPhases(ctx context.Context, now time.Time, settings Settings, pops []population, phase func(ctx context.Context, now time.Time, settings Settings, pop population) Summary) Summary {
	results := make(chan Summary, len(pops))
	var wg sync.WaitGroup
	for _, pop := range pops {
		wg.Add(1)
		go func(pop population) {
			defer wg.Done()
			results <- phase(ctx, now, settings, pop)
		}(pop)
	}
	wg.Wait()
	close(results)

	var merged Summary
	for partial := range results {
		merged.merge(partial)
	}
	return merged
}

func (r *Runner) sweepReminders(ctx context.Context, now time.Time, settings Settings, pop population) Summary {
	var sum Summary
	for _, rec := range pop.records {
		state := rec.State()

		// Rows written before the end time was cached carry a zero value;
		// derive it from the booking date and window. A malformed date
		// skips the record rather than failing the run.
		if state.ScheduledEndTime.IsZero() {
			end, err := schedule.ScheduledEnd(rec.ScheduledDate(), rec.WindowLabel())
			if err != nil {
				r.logger.Error("Failed to derive scheduled end time",
					slog.String("population", pop.name),
					slog.String("record_id", rec.RecordID()),
					slog.String("date", rec.ScheduledDate()),
					slog.Any("error", err),
				)
				sum.Errors++
				continue
			}
			state.ScheduledEndTime = end
		}

		// Backfill the stored deadline for legacy rows so the completion
		// query can see them on a later pass.
		if state.AutoCompleteAt == nil {
			deadline := Deadline(state, settings)
			if err := pop.setDeadline(ctx, rec.RecordID(), deadline); err != nil {
				r.logger.Error("Failed to backfill auto-complete deadline",
					slog.String("population", pop.name),
					slog.String("record_id", rec.RecordID()),
					slog.Any("error", err),
				)
				sum.Errors++
			}
			state.AutoCompleteAt = &deadline
		}

		ordinal := DueReminderOrdinal(state, settings, now)
		if ordinal == 0 {
			continue
		}

		updated, err := pop.markReminder(ctx, rec.RecordID(), ordinal, now)
		if err != nil {
			r.logger.Error("Failed to record reminder",
				slog.String("population", pop.name),
				slog.String("record_id", rec.RecordID()),
				slog.Int("ordinal", ordinal),
				slog.Any("error", err),
			)
			sum.Errors++
			continue
		}
		if !updated {
			// Another run got there first; its notification stands.
			continue
		}

		r.notifier.ReminderDue(ctx, rec, ordinal, now, Deadline(state, settings))
		sum.RemindersSent++

		r.logger.Info("Reminder sent",
			slog.String("population", pop.name),
			slog.String("record_id", rec.RecordID()),
			slog.Int("ordinal", ordinal),
		)
	}
	return sum
}

func (r *Runner) sweepCompletions(ctx context.Context, now time.Time, settings Settings, pop population) Summary {
	var sum Summary
	for _, rec := range pop.records {
		if !ShouldAutoComplete(rec.State(), settings, now) {
			continue
		}

		completion := BuildCompletion(settings, now)
		updated, err := pop.submit(ctx, rec.RecordID(), completion)
		if err != nil {
			r.logger.Error("Failed to auto-complete record",
				slog.String("population", pop.name),
				slog.String("record_id", rec.RecordID()),
				slog.Any("error", err),
			)
			sum.Errors++
			continue
		}
		if !updated {
			continue
		}

		r.notifier.AutoCompleted(ctx, rec, completion)
		sum.AutoCompleted++

		r.logger.Info("Record auto-completed",
			slog.String("population", pop.name),
			slog.String("record_id", rec.RecordID()),
			slog.Time("approval_expires_at", completion.AutoApprovalExpiresAt),
		)
	}
	return sum
}

func asRecords[T domain.CompletionRecord](items []T) []domain.CompletionRecord {
	records := make([]domain.CompletionRecord, len(items))
	for i, item := range items {
		records[i] = item
	}
	return records
}
