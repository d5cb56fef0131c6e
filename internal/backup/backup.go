// Package backup writes and restores encrypted snapshots of the database.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Snapshot copies the live database with VACUUM INTO, seals the copy and
// writes it to dstPath with mode 0600. It returns the number of bytes written.
func Snapshot(ctx context.Context, db *sql.DB, dstPath, passphrase string) (int, error) {
	tmpDir, err := os.MkdirTemp("", "birdie-backup-*")
	if err != nil {
		return 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	copyPath := filepath.Join(tmpDir, "snapshot.db")
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", copyPath); err != nil {
		return 0, fmt.Errorf("vacuum into: %w", err)
	}

	plaintext, err := os.ReadFile(copyPath)
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}

	sealed, err := Seal(plaintext, passphrase)
	if err != nil {
		return 0, fmt.Errorf("encrypt: %w", err)
	}

	if err := os.WriteFile(dstPath, sealed, 0600); err != nil {
		return 0, fmt.Errorf("write backup: %w", err)
	}
	return len(sealed), nil
}

// Restore decrypts the backup at srcPath, checks that it is an intact birdie
// database and moves it to dstPath. An existing dstPath is only replaced when
// overwrite is set; its WAL and shared-memory files are removed with it.
func Restore(ctx context.Context, srcPath, dstPath, passphrase string, overwrite bool) error {
	if _, err := os.Stat(dstPath); err == nil && !overwrite {
		return fmt.Errorf("restore target %s already exists", dstPath)
	}

	sealed, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	plaintext, err := Open(sealed, passphrase)
	if err != nil {
		return err
	}

	// Stage next to the target so the final rename stays on one filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(dstPath), ".birdie-restore-*.db")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(plaintext); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := validate(ctx, tmpPath); err != nil {
		return err
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dstPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", suffix, err)
		}
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	return nil
}

func validate(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var integrity string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if integrity != "ok" {
		return fmt.Errorf("integrity check failed: %s", integrity)
	}

	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('admins', 'members', 'fees')`,
	).Scan(&n); err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if n != 3 {
		return fmt.Errorf("backup does not contain a birdie database")
	}
	return nil
}
