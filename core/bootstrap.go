package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

// EnsureDataFiles creates the data directory plus empty credential and failed-login
// files when they are missing. It is idempotent. The denylist is never created: a
// missing denylist must keep blocking registration, so it is only reported.
func EnsureDataFiles(cfg Config) error {
	if !cfg.CreateMissingFiles {
		return nil
	}
	paths := []string{cfg.FailedLoginFile}
	if cfg.CredentialBackend != "postgres" {
		paths = append(paths, cfg.UserFile)
	}
	for _, p := range paths {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("create dir for %s: %w", p, err)
		}
		f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			return fmt.Errorf("create %s: %w", p, err)
		}
		f.Close()
		log.Printf("created empty data file %s", p)
	}
	if _, err := os.Stat(cfg.DenylistFile); err != nil {
		log.Printf("warning: password denylist %s unavailable, registration will be refused: %v", cfg.DenylistFile, err)
	}
	return nil
}

// OpenCredentialStore builds the configured backend. On success the close func is non-nil.
func OpenCredentialStore(ctx context.Context, cfg Config) (CredentialStore, func(), error) {
	switch cfg.CredentialBackend {
	case "", "file":
		return NewFileCredentialStore(cfg.UserFile), func() {}, nil
	case "postgres":
		db, err := Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		store := NewPgCredentialStore(db)
		if cfg.CreateMissingFiles {
			if err := store.EnsureSchema(ctx); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("ensure users schema: %w", err)
			}
		}
		return store, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown credential backend %q", cfg.CredentialBackend)
	}
}
