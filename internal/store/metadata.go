package store

import (
	"context"
	"database/sql"
	"errors"
)

// Metadata keys.
const (
	MetaLastBackupAt  = "last_backup_at"
	MetaLastRestoreAt = "last_restore_at"
)

// SetMetadata upserts a key-value pair in the app_metadata table.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`INSERT INTO app_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.conn(ctx).QueryRowContext(ctx, `SELECT value FROM app_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

const importedFilePrefix = "imported_file:"

// ImportedFileHash returns the content hash recorded for a preloaded bank
// file, or "" if the file was never imported.
func (s *Store) ImportedFileHash(ctx context.Context, path string) (string, error) {
	return s.GetMetadata(ctx, importedFilePrefix+path)
}

func (s *Store) SetImportedFileHash(ctx context.Context, path, hash string) error {
	return s.SetMetadata(ctx, importedFilePrefix+path, hash)
}
