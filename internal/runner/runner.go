// Package runner exports new Telegram messages to an org outline.
package runner

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"telegram2org/internal/filter"
	"telegram2org/internal/model"
	"telegram2org/internal/org"
	"telegram2org/internal/source"
	"telegram2org/internal/storage"
	"telegram2org/internal/task"
)

// Source returns the messages of a named conversation.
type Source interface {
	Fetch(ctx context.Context, name string) ([]model.Message, error)
}

// Confirmer is implemented by sources that must be told which messages were consumed.
type Confirmer interface {
	Confirm(ctx context.Context) error
}

// Watermark is the persisted export boundary.
type Watermark interface {
	Load() (int64, error)
	Advance(date int64, title string) error
}

// JournalOpener opens the export journal. It is called only once a run has
// tasks to record.
type JournalOpener func() (storage.Journal, error)

// Outcome describes how a run ended.
type Outcome int

// Possible run outcomes.
const (
	OutcomeExported Outcome = iota
	OutcomeNoop
	OutcomeSuppressed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExported:
		return "exported"
	case OutcomeNoop:
		return "noop"
	case OutcomeSuppressed:
		return "suppressed"
	}
	return "unknown"
}

// Options configures a Runner.
type Options struct {
	Conversation string
	OutputPath   string
	Tag          string
	Location     *time.Location
	// DryRun writes the outline but leaves the watermark untouched.
	DryRun bool
}

// Runner performs one export pass.
type Runner struct {
	source  Source
	marks   Watermark
	journal JournalOpener
	opts    Options
	log     *slog.Logger
	now     func() time.Time
}

// New creates a Runner. journal may be nil.
func New(src Source, marks Watermark, journal JournalOpener, opts Options, log *slog.Logger) *Runner {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Runner{
		source:  src,
		marks:   marks,
		journal: journal,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

// SetClock overrides the wall clock used for scheduled and created stamps.
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// Run fetches, formats and filters tasks, appends the new ones to the
// outline and advances the watermark.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	runID, err := r.newRunID()
	if err != nil {
		return OutcomeNoop, fmt.Errorf("run id: %w", err)
	}
	log := r.log.With("run_id", runID)

	msgs, err := r.source.Fetch(ctx, r.opts.Conversation)
	if err != nil {
		if errors.Is(err, source.ErrTemporarilyUnavailable) {
			log.Error("telegram has internal issues", "error", err)
			log.Info("ignoring the error, it happens sometimes")
			return OutcomeSuppressed, nil
		}
		return OutcomeNoop, fmt.Errorf("fetch messages: %w", err)
	}

	groups := task.Group(msgs)
	tasks := make([]model.Task, 0, len(groups))
	for _, g := range groups {
		tasks = append(tasks, task.Format(g, log))
	}

	mark, err := r.marks.Load()
	if err != nil {
		return OutcomeNoop, fmt.Errorf("load watermark: %w", err)
	}
	fresh := slices.Collect(filter.New(tasks, mark, log))
	if len(fresh) == 0 {
		log.Info("no new tasks, exiting", "messages", len(msgs), "watermark", mark)
		if !r.opts.DryRun {
			r.confirm(ctx, log)
		}
		return OutcomeNoop, nil
	}

	now := r.now().In(r.opts.Location)
	entries := make([]string, 0, len(fresh))
	for _, t := range fresh {
		entries = append(entries, org.Render(t, now, r.opts.Tag))
	}

	if err := org.Append(r.opts.OutputPath, entries); err != nil {
		return OutcomeNoop, fmt.Errorf("append tasks: %w", err)
	}
	log.Info("appended tasks", "count", len(entries), "path", r.opts.OutputPath, "dry_run", r.opts.DryRun)

	r.record(ctx, log, runID, fresh, now)

	if r.opts.DryRun {
		log.Info("dry run, watermark not advanced")
		return OutcomeExported, nil
	}

	for _, t := range fresh {
		if err := r.marks.Advance(t.Date, t.Title); err != nil {
			return OutcomeNoop, fmt.Errorf("advance watermark to %d: %w", t.Date, err)
		}
	}
	r.confirm(ctx, log)

	return OutcomeExported, nil
}

func (r *Runner) record(ctx context.Context, log *slog.Logger, runID string, tasks []model.Task, at time.Time) {
	if r.journal == nil {
		return
	}
	journal, err := r.journal()
	if err != nil {
		log.Error("open journal", "error", err)
		return
	}
	defer func() { _ = journal.Close() }()

	for _, t := range tasks {
		e := &model.Export{
			RunID:      runID,
			TaskDate:   t.Date,
			Title:      t.Title,
			DryRun:     r.opts.DryRun,
			ExportedAt: at,
		}
		if err := journal.RecordExport(ctx, e); err != nil {
			log.Error("record export", "date", t.Date, "error", err)
		}
	}
}

func (r *Runner) confirm(ctx context.Context, log *slog.Logger) {
	c, ok := r.source.(Confirmer)
	if !ok {
		return
	}
	if err := c.Confirm(ctx); err != nil {
		log.Error("confirm updates", "error", err)
	}
}

func (r *Runner) newRunID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(r.now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
