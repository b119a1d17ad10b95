package transfer

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	coredatabase "github.com/m3rciful/catalogbot/core/database"
)

const (
	backupPrefix = "catalog-"
	backupSuffix = ".db"
	stampLayout  = "20060102-150405"
)

var sqliteHeader = []byte("SQLite format 3\x00")

// Artifact is a file produced by Backup or Snapshot.
type Artifact struct {
	Path string
	Size int64
}

// Name returns the base file name.
func (a Artifact) Name() string { return filepath.Base(a.Path) }

// Backup writes a consistent copy of the store into the backup directory
// as catalog-YYYYmmdd-HHMMSS.db and prunes the oldest copies beyond Keep.
func (e *Engine) Backup(ctx context.Context) (Artifact, error) {
	start := time.Now()
	a, err := e.backup(ctx)
	e.observe(ctx, "backup", start, err, slog.String("path", a.Path), slog.Int64("bytes", a.Size))
	return a, err
}

func (e *Engine) backup(ctx context.Context) (Artifact, error) {
	if e.st.Driver() != coredatabase.DriverSQLite {
		return Artifact{}, ErrUnsupported
	}
	if err := os.MkdirAll(e.cfg.Dir, 0o750); err != nil {
		return Artifact{}, fmt.Errorf("backup dir: %w", err)
	}
	dst := e.backupPath()
	if err := e.vacuumInto(ctx, dst); err != nil {
		return Artifact{}, err
	}
	a, err := stat(dst)
	if err != nil {
		return Artifact{}, err
	}
	if _, err := Prune(e.cfg.Dir, e.cfg.Keep); err != nil {
		e.log.WarnContext(ctx, "backup prune failed",
			slog.String("event", "transfer.prune"),
			slog.String("err", err.Error()),
		)
	}
	return a, nil
}

// backupPath picks a timestamped name, suffixing a counter when two
// backups land in the same second.
func (e *Engine) backupPath() string {
	stamp := e.now().Format(stampLayout)
	path := filepath.Join(e.cfg.Dir, backupPrefix+stamp+backupSuffix)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = filepath.Join(e.cfg.Dir, fmt.Sprintf("%s%s-%d%s", backupPrefix, stamp, i, backupSuffix))
	}
}

// Snapshot writes a consistent copy of the store into dir under a temporary
// name. The caller removes it.
func (e *Engine) Snapshot(ctx context.Context, dir string) (Artifact, error) {
	start := time.Now()
	a, err := e.snapshot(ctx, dir)
	e.observe(ctx, "snapshot", start, err)
	return a, err
}

func (e *Engine) snapshot(ctx context.Context, dir string) (Artifact, error) {
	if e.st.Driver() != coredatabase.DriverSQLite {
		return Artifact{}, ErrUnsupported
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return Artifact{}, fmt.Errorf("snapshot dir: %w", err)
	}
	dst := filepath.Join(dir, fmt.Sprintf("snapshot-%d%s", e.now().UnixNano(), backupSuffix))
	if err := e.vacuumInto(ctx, dst); err != nil {
		return Artifact{}, err
	}
	return stat(dst)
}

func (e *Engine) vacuumInto(ctx context.Context, dst string) error {
	stmt := "VACUUM INTO '" + strings.ReplaceAll(dst, "'", "''") + "'"
	err := e.st.Raw(func(db *sqlx.DB) error {
		_, err := db.ExecContext(ctx, stmt)
		return err
	})
	if err != nil {
		return fmt.Errorf("vacuum into %s: %w", dst, err)
	}
	return nil
}

func stat(path string) (Artifact, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Path: path, Size: fi.Size()}, nil
}

// ListBackups returns backup files in dir, newest first.
func ListBackups(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, backupPrefix+"*"+backupSuffix))
	if err != nil {
		return nil, err
	}
	slices.SortFunc(matches, func(a, b string) int {
		sa, na := backupOrder(a)
		sb, nb := backupOrder(b)
		return cmp.Or(cmp.Compare(sb, sa), cmp.Compare(nb, na), cmp.Compare(b, a))
	})
	return matches, nil
}

// backupOrder splits catalog-<stamp>[-<n>].db into its stamp and same-second
// counter. Names that do not parse sort before every stamped backup.
func backupOrder(path string) (string, int) {
	name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), backupPrefix), backupSuffix)
	if len(name) < len(stampLayout) {
		return "", -1
	}
	stamp, rest := name[:len(stampLayout)], name[len(stampLayout):]
	if _, err := time.Parse(stampLayout, stamp); err != nil {
		return "", -1
	}
	if rest == "" {
		return stamp, 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(rest, "-"))
	if err != nil || !strings.HasPrefix(rest, "-") || n < 1 {
		return stamp, -1
	}
	return stamp, n
}

// Prune removes backups beyond the keep newest and returns the removed paths.
func Prune(dir string, keep int) ([]string, error) {
	files, err := ListBackups(dir)
	if err != nil || len(files) <= keep {
		return nil, err
	}
	var removed []string
	var errs []error
	for _, f := range files[keep:] {
		if err := os.Remove(f); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, f)
	}
	return removed, errors.Join(errs...)
}

// CheckSQLite verifies the file starts with the sqlite header.
func CheckSQLite(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	head := make([]byte, len(sqliteHeader))
	if _, err := io.ReadFull(f, head); err != nil || !bytes.Equal(head, sqliteHeader) {
		return fmt.Errorf("%w: %s is not an SQLite database", ErrMalformed, filepath.Base(path))
	}
	return nil
}

// Replace substitutes the store file with src: the file is checked, the
// current store is backed up, and the new file is moved into place under
// the store's exclusive lock.
func (e *Engine) Replace(ctx context.Context, src string) (Artifact, error) {
	start := time.Now()
	backup, err := e.replace(ctx, src)
	e.observe(ctx, "replace", start, err, slog.String("backup", backup.Path))
	return backup, err
}

func (e *Engine) replace(ctx context.Context, src string) (Artifact, error) {
	if e.st.Driver() != coredatabase.DriverSQLite {
		return Artifact{}, ErrUnsupported
	}
	if err := CheckSQLite(src); err != nil {
		return Artifact{}, err
	}
	backup, err := e.backup(ctx)
	if err != nil {
		return Artifact{}, fmt.Errorf("backup before replace: %w", err)
	}
	err = e.st.Swap(ctx, func(dst string) error {
		return installFile(src, dst)
	})
	if err != nil {
		return backup, fmt.Errorf("replace: %w", err)
	}
	return backup, nil
}

// installFile copies src next to dst and renames it over dst. Stale WAL
// files of the old database are removed so they are not replayed.
func installFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".restore-*.db")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dst + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			_ = os.Remove(tmpName)
			return err
		}
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
