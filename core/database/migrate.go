package database

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/catalogbot/core/logger"
)

const (
	readyTimeout   = 30 * time.Second
	previewEntries = 6
)

// migration is one "NNN_name.up.sql" file of the driver directory.
type migration struct {
	version uint64
	name    string
}

// RunMigrations brings the schema to the newest version found in fsys under
// the directory named after the driver. Running it twice is a no-op.
func RunMigrations(cfg Config, fsys fs.FS) error {
	if err := cfg.Normalize(); err != nil {
		return err
	}
	if fsys == nil {
		return errors.New("migrations: nil source filesystem")
	}
	if cfg.Driver == DriverPostgres {
		if err := WaitForPostgres(cfg.DSN(), readyTimeout); err != nil {
			logger.MIG.Error("db not ready", slog.String("event", "db.migrate"), slog.String("err", err.Error()))
			return fmt.Errorf("database not ready: %w", err)
		}
	}

	files := scan(fsys, cfg.Driver)
	logger.MIG.Debug("migrations resolved", previewAttrs("resolve", files,
		slog.String("driver", cfg.Driver))...)

	src, err := iofs.New(fsys, cfg.Driver)
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.MigrateURL())
	if err != nil {
		logger.MIG.Error("init failed", slog.String("event", "db.migrate"), slog.String("err", err.Error()))
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() {
		if err := errors.Join(m.Close()); err != nil {
			logger.MIG.Warn("close failed", slog.String("event", "db.migrate"), slog.String("err", err.Error()))
		}
	}()

	from, dirty, _ := m.Version()
	if dirty {
		logger.MIG.Warn("schema marked dirty",
			slog.String("event", "db.migrate"),
			slog.Uint64("version", uint64(from)),
		)
	}

	start := time.Now()
	upErr := m.Up()
	took := logger.RoundMS(time.Since(start))
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", took),
		)
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	to, _, _ := m.Version()
	applied := between(files, uint64(from), uint64(to))
	if len(applied) > 0 {
		logger.MIG.Debug("applied files", previewAttrs("apply", applied)...)
	}
	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", took),
	)
	return nil
}

// scan lists the up migrations of dir ordered by version.
func scan(fsys fs.FS, dir string) []migration {
	names, err := fs.Glob(fsys, path.Join(dir, "*.up.sql"))
	if err != nil {
		return nil
	}
	out := make([]migration, 0, len(names))
	for _, full := range names {
		name := path.Base(full)
		head, _, _ := strings.Cut(name, "_")
		v, err := strconv.ParseUint(head, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, migration{version: v, name: name})
	}
	slices.SortFunc(out, func(a, b migration) int { return cmp.Compare(a.version, b.version) })
	return out
}

// between keeps the migrations in (from, to].
func between(files []migration, from, to uint64) []migration {
	var out []migration
	for _, f := range files {
		if f.version > from && f.version <= to {
			out = append(out, f)
		}
	}
	return out
}

func previewAttrs(event string, files []migration, extra ...any) []any {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	attrs := append([]any{slog.String("event", event), slog.Int("files_total", len(files))}, extra...)
	if preview, more := logger.Preview(names, previewEntries); preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
		if more {
			attrs = append(attrs, slog.Bool("files_truncated", true))
		}
	}
	return attrs
}
