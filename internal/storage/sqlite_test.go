package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"telegram2org/internal/model"
)

var ignoreIDs = cmpopts.IgnoreFields(model.Export{}, "ID")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndListExports(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	exports := []model.Export{
		{RunID: "run-1", TaskDate: 100, Title: "me first", ExportedAt: at},
		{RunID: "run-1", TaskDate: 200, Title: "me second", ExportedAt: at},
		{RunID: "run-2", TaskDate: 300, Title: "me third", DryRun: true, ExportedAt: at.Add(time.Hour)},
	}
	for i := range exports {
		if err := s.RecordExport(ctx, &exports[i]); err != nil {
			t.Fatalf("record export %d: %v", i, err)
		}
		if exports[i].ID == 0 {
			t.Fatalf("export %d: expected non-zero ID", i)
		}
	}

	got, err := s.ListExports(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []model.Export{exports[2], exports[1]}
	if diff := cmp.Diff(want, got, ignoreIDs); diff != "" {
		t.Errorf("ListExports mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordExportDefaultsTime(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	before := time.Now().UTC().Add(-time.Second)
	e := model.Export{RunID: "r", TaskDate: 1, Title: "t"}
	if err := s.RecordExport(ctx, &e); err != nil {
		t.Fatalf("record: %v", err)
	}
	if e.ExportedAt.Before(before) {
		t.Errorf("ExportedAt %v is before test start %v", e.ExportedAt, before)
	}
}

func TestListExportsEmpty(t *testing.T) {
	s := newTestDB(t)
	got, err := s.ListExports(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no exports, got %d", len(got))
	}
}
