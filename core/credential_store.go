package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// UserRecord is one stored credential row.
type UserRecord struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
}

// fields returns the record in column order: id, first, last, email, hash.
func (u UserRecord) fields() []string {
	return []string{strconv.FormatInt(u.ID, 10), u.FirstName, u.LastName, u.Email, u.PasswordHash}
}

// CredentialStore persists user records keyed by email.
type CredentialStore interface {
	Load(ctx context.Context) ([]UserRecord, error)
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	// Append assigns ID = number of existing records and persists rec.
	Append(ctx context.Context, rec UserRecord) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, email, newHash string) error
}

const recordColumns = 5

// FileCredentialStore keeps records as tab-separated lines in a single file.
// Mutations are serialized with a mutex and a flock on the file; rewrites
// replace the file atomically via rename.
type FileCredentialStore struct {
	path string
	mu   sync.Mutex
}

func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

func (s *FileCredentialStore) Load(ctx context.Context) ([]UserRecord, error) {
	return s.readAll()
}

func (s *FileCredentialStore) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	records, err := s.readAll()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Email == email {
			return &records[i], nil
		}
	}
	return nil, nil
}

func (s *FileCredentialStore) Append(ctx context.Context, rec UserRecord) (UserRecord, error) {
	unlock, err := s.lock()
	if err != nil {
		return UserRecord{}, err
	}
	defer unlock()

	records, err := s.readAll()
	if err != nil {
		return UserRecord{}, err
	}
	rec.ID = int64(len(records))

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return UserRecord{}, s.wrapOpenErr(err)
	}
	defer f.Close()
	if _, err := f.WriteString("\n" + strings.Join(rec.fields(), "\t")); err != nil {
		return UserRecord{}, fmt.Errorf("append credential record: %w", err)
	}
	return rec, f.Sync()
}

func (s *FileCredentialStore) UpdatePasswordHash(ctx context.Context, email, newHash string) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	records, err := s.readAll()
	if err != nil {
		return err
	}
	idx := -1
	for i := range records {
		if records[i].Email == email {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, email)
	}
	records[idx].PasswordHash = newHash
	return s.rewrite(records)
}

func (s *FileCredentialStore) lock() (func(), error) {
	s.mu.Lock()
	fl, err := lockFile(s.path)
	if err != nil {
		s.mu.Unlock()
		return nil, s.wrapOpenErr(err)
	}
	return func() {
		_ = fl.Unlock()
		s.mu.Unlock()
	}, nil
}

func (s *FileCredentialStore) readAll() ([]UserRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, s.wrapOpenErr(err)
	}
	defer f.Close()

	var out []UserRecord
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) != recordColumns {
			return nil, fmt.Errorf("%w: line %d has %d columns", ErrMalformedRecord, lineNo, len(cols))
		}
		id, err := strconv.ParseInt(cols[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d id %q", ErrMalformedRecord, lineNo, cols[0])
		}
		out = append(out, UserRecord{
			ID:           id,
			FirstName:    cols[1],
			LastName:     cols[2],
			Email:        cols[3],
			PasswordHash: cols[4],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	return out, nil
}

// rewrite writes all records to a temp file in the same directory and renames it over the original.
func (s *FileCredentialStore) rewrite(records []UserRecord) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	w := bufio.NewWriter(tmp)
	for _, r := range records {
		if _, err := w.WriteString(strings.Join(r.fields(), "\t") + "\n"); err != nil {
			tmp.Close()
			return fmt.Errorf("write temp credential file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush temp credential file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

func (s *FileCredentialStore) wrapOpenErr(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrStoreUnavailable, s.path)
	}
	return fmt.Errorf("open credential file: %w", err)
}
