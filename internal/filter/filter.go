// Package filter selects the tasks that have not been exported yet.
package filter

import (
	"iter"
	"log/slog"

	"telegram2org/internal/model"
)

// New returns the tasks dated strictly after watermark, in input order.
// Tasks are evaluated lazily as the sequence is ranged over.
func New(tasks []model.Task, watermark int64, log *slog.Logger) iter.Seq[model.Task] {
	return func(yield func(model.Task) bool) {
		for _, t := range tasks {
			if !IsNew(t, watermark) {
				log.Debug("skipping task", "date", t.Date, "title", t.Title)
				continue
			}
			log.Info("new task", "date", t.Date, "title", t.Title)
			if !yield(t) {
				return
			}
		}
	}
}

// IsNew reports whether t was created after the watermark.
func IsNew(t model.Task, watermark int64) bool {
	return t.Date > watermark
}
