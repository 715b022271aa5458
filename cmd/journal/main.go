package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"telegram2org/internal/storage"
	"telegram2org/migrations"
)

func main() {
	dbPath := flag.String("db", envOrDefault("DATABASE_PATH", "./data/telegram2org.db"), "path to sqlite database")
	limit := flag.Int("n", 20, "number of exports to show")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cmd := args[0]
	if cmd == "exports" {
		if err := listExports(os.Stdout, *dbPath, *limit); err != nil {
			log.Fatalf("exports: %v", err)
		}
		return
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		log.Fatalf("set dialect: %v", err)
	}

	switch cmd {
	case "up":
		err = goose.Up(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	case "version":
		err = goose.Version(db, ".")
	case "reset":
		err = goose.Reset(db, ".")
	default:
		log.Fatalf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: journal [-db path] [-n count] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  exports     Show the most recently exported tasks")
	fmt.Fprintln(os.Stderr, "  up          Migrate to the latest version")
	fmt.Fprintln(os.Stderr, "  down        Roll back one version")
	fmt.Fprintln(os.Stderr, "  status      Show migration status")
	fmt.Fprintln(os.Stderr, "  version     Show current version")
	fmt.Fprintln(os.Stderr, "  reset       Roll back all migrations")
}

func listExports(w io.Writer, dbPath string, limit int) error {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	journal, err := storage.NewSQLite(dbPath, quiet)
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	exports, err := journal.ListExports(context.Background(), limit)
	if err != nil {
		return err
	}
	for _, e := range exports {
		mode := ""
		if e.DryRun {
			mode = " (test)"
		}
		fmt.Fprintf(w, "%s  %s  %s%s\n  %s\n",
			e.ExportedAt.Format("2006-01-02 15:04"),
			time.Unix(e.TaskDate, 0).UTC().Format(time.RFC3339),
			e.RunID, mode, e.Title)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
