package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Service implements AuthService on top of a credential store, password policy,
// hasher and failed-login recorder. Records are never cached between calls.
type Service struct {
	users    CredentialStore
	policy   *PasswordPolicy
	hasher   PasswordHasher
	failures FailedLoginRecorder
	match    MatchMode

	// serializes check-then-write sequences (register, change password)
	mu sync.Mutex
}

func NewService(users CredentialStore, policy *PasswordPolicy, hasher PasswordHasher, failures FailedLoginRecorder, match MatchMode) *Service {
	if match == "" {
		match = MatchEmail
	}
	return &Service{
		users:    users,
		policy:   policy,
		hasher:   hasher,
		failures: failures,
		match:    match,
	}
}

// Register validates the input, stores a new record and binds the session to its email.
// Nothing is written unless every check passes.
func (s *Service) Register(ctx context.Context, sess Session, in RegisterInput) (UserRecord, error) {
	if err := validateRegisterInput(in); err != nil {
		return UserRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return UserRecord{}, err
	}
	if existing != nil {
		return UserRecord{}, ErrEmailTaken
	}
	if err := s.policy.Validate(in.Password); err != nil {
		return UserRecord{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return UserRecord{}, fmt.Errorf("hash password: %w", err)
	}
	rec, err := s.users.Append(ctx, UserRecord{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return UserRecord{}, err
	}
	logAuthEvent("register", rec.Email, "", nil)

	if err := sess.SetIdentity(rec.Email); err != nil {
		return rec, fmt.Errorf("start session: %w", err)
	}
	return rec, nil
}

// Login verifies the password of the first matching record only. Every failure
// appends a failed-login entry before returning.
func (s *Service) Login(ctx context.Context, sess Session, email, password, sourceAddress string) (UserRecord, error) {
	rec, err := s.verify(ctx, email, password)
	if err != nil {
		s.RecordFailedAttempt(ctx, sourceAddress)
		logAuthEvent("login_failed", email, sourceAddress, err)
		if errors.Is(err, ErrStoreUnavailable) {
			return UserRecord{}, err
		}
		return UserRecord{}, ErrInvalidCredentials
	}

	if err := sess.SetIdentity(email); err != nil {
		return UserRecord{}, fmt.Errorf("start session: %w", err)
	}
	logAuthEvent("login", email, sourceAddress, nil)
	return rec, nil
}

// ChangePassword re-verifies the current password for the session identity, then
// stores the new hash and ends the session. A wrong current password keeps the session.
func (s *Service) ChangePassword(ctx context.Context, sess Session, currentPassword, newPassword string) error {
	email, err := Guard(sess)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.verify(ctx, email, currentPassword)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return ErrCurrentPasswordIncorrect
		}
		return err
	}
	if err := s.policy.Validate(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, rec.Email, hash); err != nil {
		return err
	}
	logAuthEvent("password_changed", email, "", nil)
	return sess.Clear()
}

// Logout clears the session and reports whether anyone was logged in.
func (s *Service) Logout(sess Session) (bool, error) {
	email, ok := sess.Identity()
	if !ok {
		return false, nil
	}
	if err := sess.Clear(); err != nil {
		return true, err
	}
	logAuthEvent("logout", email, "", nil)
	return true, nil
}

// RecordFailedAttempt writes a failed-login entry; write errors are logged, not returned.
func (s *Service) RecordFailedAttempt(ctx context.Context, sourceAddress string) {
	if s.failures == nil {
		return
	}
	if err := s.failures.Record(ctx, sourceAddress); err != nil {
		logAuthEvent("failed_login_log_error", "", sourceAddress, err)
	}
}

// verify finds the record to check according to the match mode and verifies password
// against it. There is no fallback to later records when the first match fails.
func (s *Service) verify(ctx context.Context, query, password string) (UserRecord, error) {
	records, err := s.users.Load(ctx)
	if err != nil {
		return UserRecord{}, err
	}
	for _, rec := range records {
		if !s.matches(rec, query) {
			continue
		}
		if s.hasher.Verify(password, rec.PasswordHash) {
			return rec, nil
		}
		return UserRecord{}, ErrInvalidCredentials
	}
	return UserRecord{}, ErrInvalidCredentials
}

func (s *Service) matches(rec UserRecord, query string) bool {
	if s.match != MatchAnyField {
		return rec.Email == query
	}
	for _, f := range rec.fields() {
		if f == query {
			return true
		}
	}
	return false
}
