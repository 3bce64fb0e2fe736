package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	failedLoginDateLayout = "01/02/2006"
	failedLoginTimeLayout = "15:04"
)

// FailedLoginRecorder appends one audit entry per failed authentication attempt.
type FailedLoginRecorder interface {
	Record(ctx context.Context, sourceAddress string) error
}

// FailedLoginEntry is one audit line: date, time, source address.
type FailedLoginEntry struct {
	At            time.Time
	SourceAddress string
}

// Line renders the entry as tab-joined date, time and address.
func (e FailedLoginEntry) Line() string {
	return strings.Join([]string{
		e.At.Format(failedLoginDateLayout),
		e.At.Format(failedLoginTimeLayout),
		e.SourceAddress,
	}, "\t")
}

// FileFailedLoginLog appends entries to an append-only TSV file.
type FileFailedLoginLog struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

func NewFileFailedLoginLog(path string) *FileFailedLoginLog {
	return &FileFailedLoginLog{path: path, now: time.Now}
}

func (l *FileFailedLoginLog) Record(ctx context.Context, sourceAddress string) error {
	entry := FailedLoginEntry{At: l.now(), SourceAddress: sourceAddress}

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open failed login log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString("\n" + entry.Line()); err != nil {
		return fmt.Errorf("write failed login log: %w", err)
	}
	return nil
}

// FailedLoginLogs fans a record out to every recorder and joins their errors.
type FailedLoginLogs []FailedLoginRecorder

func (ls FailedLoginLogs) Record(ctx context.Context, sourceAddress string) error {
	var errs []error
	for _, l := range ls {
		if err := l.Record(ctx, sourceAddress); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
