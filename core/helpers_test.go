package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeDenylist writes words one per line into a temp denylist file.
func writeDenylist(t *testing.T, words ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "CommonPassword.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(words, "\n")+"\n"), 0o600))
	return path
}

// emptyUserFile creates an empty credential file and returns its path.
func emptyUserFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user_info.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	return path
}

// memorySession is an in-process Session used by service tests.
type memorySession struct {
	email string
}

func (s *memorySession) Identity() (string, bool) { return s.email, s.email != "" }

func (s *memorySession) SetIdentity(email string) error {
	s.email = email
	return nil
}

func (s *memorySession) Clear() error {
	s.email = ""
	return nil
}

// recordingFailures counts failed-login records in memory.
type recordingFailures struct {
	addrs []string
}

func (r *recordingFailures) Record(_ context.Context, addr string) error {
	r.addrs = append(r.addrs, addr)
	return nil
}
