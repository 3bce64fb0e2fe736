package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const strongPassword = "Str0ng!Passw0rd"

type serviceFixture struct {
	svc       *Service
	store     *FileCredentialStore
	userFile  string
	failures  *FileFailedLoginLog
	failedLog string
}

func newServiceFixture(t *testing.T, match MatchMode) serviceFixture {
	t.Helper()
	dir := t.TempDir()
	userFile := filepath.Join(dir, "user_info.txt")
	require.NoError(t, os.WriteFile(userFile, nil, 0o600))
	failedLog := filepath.Join(dir, "failed_logins.txt")

	store := NewFileCredentialStore(userFile)
	failures := NewFileFailedLoginLog(failedLog)
	svc := NewService(store, NewPasswordPolicy(writeDenylist(t, "password", "123456")), NewBcryptHasher(bcrypt.MinCost), failures, match)
	return serviceFixture{svc: svc, store: store, userFile: userFile, failures: failures, failedLog: failedLog}
}

func (f serviceFixture) failedEntries(t *testing.T) []string {
	t.Helper()
	raw, err := os.ReadFile(f.failedLog)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var out []string
	for _, line := range strings.Split(string(raw), "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func register(t *testing.T, svc *Service, first, last, email, pw string) (UserRecord, *memorySession) {
	t.Helper()
	sess := &memorySession{}
	rec, err := svc.Register(context.Background(), sess, RegisterInput{FirstName: first, LastName: last, Email: email, Password: pw})
	require.NoError(t, err)
	return rec, sess
}

func TestServiceScenario(t *testing.T) {
	f := newServiceFixture(t, MatchEmail)
	ctx := context.Background()

	rec, sess := register(t, f.svc, "Ann", "Lee", "ann@x.com", strongPassword)
	assert.Equal(t, int64(0), rec.ID)
	email, ok := sess.Identity()
	assert.True(t, ok)
	assert.Equal(t, "ann@x.com", email)

	_, err := f.svc.Register(ctx, &memorySession{}, RegisterInput{FirstName: "Ann", LastName: "Lee", Email: "ann@x.com", Password: strongPassword})
	assert.ErrorIs(t, err, ErrEmailTaken)

	loginSess := &memorySession{}
	_, err = f.svc.Login(ctx, loginSess, "ann@x.com", "wrong", "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, ok = loginSess.Identity()
	assert.False(t, ok)
	entries := f.failedEntries(t)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0], "\t10.0.0.1"))

	got, err := f.svc.Login(ctx, loginSess, "ann@x.com", strongPassword, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	email, ok = loginSess.Identity()
	assert.True(t, ok)
	assert.Equal(t, "ann@x.com", email)
	assert.Len(t, f.failedEntries(t), 1, "success does not log")
}

func TestServiceRegisterStoresVerifiableHash(t *testing.T) {
	f := newServiceFixture(t, MatchEmail)
	register(t, f.svc, "Ann", "Lee", "ann@x.com", strongPassword)
	register(t, f.svc, "Bob", "Ray", "bob@x.com", "An0ther#Secret")

	hasher := NewBcryptHasher(bcrypt.MinCost)
	for email, pw := range map[string]string{"ann@x.com": strongPassword, "bob@x.com": "An0ther#Secret"} {
		rec, err := f.store.FindByEmail(context.Background(), email)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.NotEqual(t, pw, rec.PasswordHash)
		assert.True(t, hasher.Verify(pw, rec.PasswordHash))
		assert.False(t, hasher.Verify(pw+"x", rec.PasswordHash))
	}
}

func TestServiceRegisterRejectsWithoutMutation(t *testing.T) {
	tests := []struct {
		name    string
		in      RegisterInput
		wantErr error
	}{
		{name: "duplicate email", in: RegisterInput{FirstName: "Ann", LastName: "Lee", Email: "ann@x.com", Password: "Diff3rent#Pass"}, wantErr: ErrEmailTaken},
		{name: "weak password", in: RegisterInput{FirstName: "Bob", LastName: "Ray", Email: "bob@x.com", Password: "short1!A"}, wantErr: ErrWeakPassword},
		{name: "common password", in: RegisterInput{FirstName: "Bob", LastName: "Ray", Email: "bob@x.com", Password: "MyPassword#2024"}, wantErr: ErrCommonPassword},
		{name: "password beyond bcrypt limit", in: RegisterInput{FirstName: "Bob", LastName: "Ray", Email: "bob@x.com", Password: strongPassword + strings.Repeat("x", 60)}, wantErr: ErrWeakPassword},
		{name: "empty first name", in: RegisterInput{FirstName: "", LastName: "Ray", Email: "bob@x.com", Password: strongPassword}, wantErr: ErrInvalidInput},
		{name: "long last name", in: RegisterInput{FirstName: "Bob", LastName: strings.Repeat("r", 21), Email: "bob@x.com", Password: strongPassword}, wantErr: ErrInvalidInput},
		{name: "bad email", in: RegisterInput{FirstName: "Bob", LastName: "Ray", Email: "not-an-email", Password: strongPassword}, wantErr: ErrInvalidInput},
		{name: "tab in name", in: RegisterInput{FirstName: "B\tob", LastName: "Ray", Email: "bob@x.com", Password: strongPassword}, wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, MatchEmail)
			register(t, f.svc, "Ann", "Lee", "ann@x.com", strongPassword)
			before, err := os.ReadFile(f.userFile)
			require.NoError(t, err)

			sess := &memorySession{}
			_, err = f.svc.Register(context.Background(), sess, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)

			after, err := os.ReadFile(f.userFile)
			require.NoError(t, err)
			assert.Equal(t, before, after)
			_, ok := sess.Identity()
			assert.False(t, ok)
		})
	}
}

func TestServiceRegisterSurfacesUnavailableResources(t *testing.T) {
	t.Run("missing denylist", func(t *testing.T) {
		userFile := emptyUserFile(t)
		svc := NewService(NewFileCredentialStore(userFile), NewPasswordPolicy(filepath.Join(t.TempDir(), "none.txt")), NewBcryptHasher(bcrypt.MinCost), nil, MatchEmail)

		_, err := svc.Register(context.Background(), &memorySession{}, RegisterInput{FirstName: "Ann", LastName: "Lee", Email: "ann@x.com", Password: strongPassword})
		assert.ErrorIs(t, err, ErrPolicyUnavailable)
		raw, err := os.ReadFile(userFile)
		require.NoError(t, err)
		assert.Empty(t, raw)
	})

	t.Run("missing credential file", func(t *testing.T) {
		svc := NewService(NewFileCredentialStore(filepath.Join(t.TempDir(), "none.txt")), NewPasswordPolicy(writeDenylist(t)), NewBcryptHasher(bcrypt.MinCost), nil, MatchEmail)

		_, err := svc.Register(context.Background(), &memorySession{}, RegisterInput{FirstName: "Ann", LastName: "Lee", Email: "ann@x.com", Password: strongPassword})
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})
}

func TestServiceLoginFailures(t *testing.T) {
	f := newServiceFixture(t, MatchEmail)
	register(t, f.svc, "Ann", "Lee", "ann@x.com", strongPassword)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, &memorySession{}, "nobody@x.com", strongPassword, "10.0.0.2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, &memorySession{}, "Ann", strongPassword, "10.0.0.3")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "name fields do not identify a user by default")

	assert.Len(t, f.failedEntries(t), 2)
}

func TestServiceLoginMissingStore(t *testing.T) {
	rec := &recordingFailures{}
	svc := NewService(NewFileCredentialStore(filepath.Join(t.TempDir(), "none.txt")), NewPasswordPolicy(writeDenylist(t)), NewBcryptHasher(bcrypt.MinCost), rec, MatchEmail)

	_, err := svc.Login(context.Background(), &memorySession{}, "ann@x.com", strongPassword, "10.0.0.4")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, []string{"10.0.0.4"}, rec.addrs)
}

func TestServiceLoginSurvivesFailedLogWriteError(t *testing.T) {
	f := newServiceFixture(t, MatchEmail)
	register(t, f.svc, "Ann", "Lee", "ann@x.com", strongPassword)
	f.svc.failures = NewFileFailedLoginLog(filepath.Join(t.TempDir(), "no-dir", "failed.txt"))

	_, err := f.svc.Login(context.Background(), &memorySession{}, "ann@x.com", "wrong", "10.0.0.5")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestServiceLoginAnyFieldMatching(t *testing.T) {
	f := newServiceFixture(t, MatchAnyField)
	register(t, f.svc, "Ann", "Lee", "ann@x.com", strongPassword)
	register(t, f.svc, "Bob", "Ann", "bob@x.com", "An0ther#Secret")
	ctx := context.Background()

	sess := &memorySession{}
	_, err := f.svc.Login(ctx, sess, "Ann", strongPassword, "10.0.0.6")
	require.NoError(t, err, "first record with a field equal to the query is verified")
	email, _ := sess.Identity()
	assert.Equal(t, "Ann", email, "session binds the submitted identity")

	_, err = f.svc.Login(ctx, &memorySession{}, "Ann", "An0ther#Secret", "10.0.0.6")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "no fallback to later records")

	_, err = f.svc.Login(ctx, &memorySession{}, "An", strongPassword, "10.0.0.6")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "fields must be equal, not contain the query")
}

func TestServiceChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a session", func(t *testing.T) {
		f := newServiceFixture(t, MatchEmail)
		err := f.svc.ChangePassword(ctx, &memorySession{}, strongPassword, "N3w#Secret-Pass")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("wrong current password keeps hash and session", func(t *testing.T) {
		f := newServiceFixture(t, MatchEmail)
		_, sess := register(t, f.svc, "Ann", "Lee", "ann@x.com", strongPassword)
		before, err := f.store.FindByEmail(ctx, "ann@x.com")
		require.NoError(t, err)

		err = f.svc.ChangePassword(ctx, sess, "Wr0ng!Password", "N3w#Secret-Pass")
		assert.ErrorIs(t, err, ErrCurrentPasswordIncorrect)

		after, err := f.store.FindByEmail(ctx, "ann@x.com")
		require.NoError(t, err)
		assert.Equal(t, before.PasswordHash, after.PasswordHash)
		_, ok := sess.Identity()
		assert.True(t, ok)
	})

	t.Run("new password beyond bcrypt limit is weak", func(t *testing.T) {
		f := newServiceFixture(t, MatchEmail)
		_, sess := register(t, f.svc, "Ann", "Lee", "ann@x.com", strongPassword)

		err := f.svc.ChangePassword(ctx, sess, strongPassword, strongPassword+strings.Repeat("x", 60))
		assert.ErrorIs(t, err, ErrWeakPassword)
		_, ok := sess.Identity()
		assert.True(t, ok)
	})

	t.Run("weak new password keeps session", func(t *testing.T) {
		f := newServiceFixture(t, MatchEmail)
		_, sess := register(t, f.svc, "Ann", "Lee", "ann@x.com", strongPassword)

		err := f.svc.ChangePassword(ctx, sess, strongPassword, "weak")
		assert.ErrorIs(t, err, ErrWeakPassword)
		_, ok := sess.Identity()
		assert.True(t, ok)
	})

	t.Run("success rotates hash and ends session", func(t *testing.T) {
		f := newServiceFixture(t, MatchEmail)
		_, sess := register(t, f.svc, "Ann", "Lee", "ann@x.com", strongPassword)
		register(t, f.svc, "Bob", "Ray", "bob@x.com", "An0ther#Secret")
		bobBefore, err := f.store.FindByEmail(ctx, "bob@x.com")
		require.NoError(t, err)

		require.NoError(t, f.svc.ChangePassword(ctx, sess, strongPassword, "N3w#Secret-Pass"))
		_, ok := sess.Identity()
		assert.False(t, ok)

		_, err = f.svc.Login(ctx, &memorySession{}, "ann@x.com", strongPassword, "10.0.0.7")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = f.svc.Login(ctx, &memorySession{}, "ann@x.com", "N3w#Secret-Pass", "10.0.0.7")
		assert.NoError(t, err)

		bobAfter, err := f.store.FindByEmail(ctx, "bob@x.com")
		require.NoError(t, err)
		assert.Equal(t, bobBefore, bobAfter)
	})
}

func TestServiceLogout(t *testing.T) {
	f := newServiceFixture(t, MatchEmail)
	_, sess := register(t, f.svc, "Ann", "Lee", "ann@x.com", strongPassword)

	was, err := f.svc.Logout(sess)
	require.NoError(t, err)
	assert.True(t, was)
	_, ok := sess.Identity()
	assert.False(t, ok)

	was, err = f.svc.Logout(sess)
	require.NoError(t, err)
	assert.False(t, was)
}

func TestGuard(t *testing.T) {
	_, err := Guard(nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = Guard(&memorySession{})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	email, err := Guard(&memorySession{email: "ann@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", email)
}
