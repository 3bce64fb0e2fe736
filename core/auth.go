package core

import (
	"context"
	"errors"
)

var (
	// ErrWeakPassword is returned when a password fails a format rule.
	ErrWeakPassword = errors.New("weak password")
	// ErrCommonPassword is returned when a password contains a denylisted word.
	ErrCommonPassword = errors.New("password contains a common word")
	// ErrPolicyUnavailable is returned when the denylist cannot be read.
	ErrPolicyUnavailable = errors.New("password policy resource unavailable")

	// ErrStoreUnavailable is returned when the credential resource does not exist.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrUserNotFound is returned when no record has the requested email.
	ErrUserNotFound = errors.New("user not found")
	// ErrIDConflict is returned when a concurrent insert claimed the same count-based id.
	ErrIDConflict = errors.New("user id already assigned")
	// ErrMalformedRecord is returned when a stored line cannot be parsed.
	ErrMalformedRecord = errors.New("malformed credential record")

	// ErrEmailTaken is returned on registration with an already registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidInput is returned when a registration field is out of bounds.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is returned when email/password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCurrentPasswordIncorrect is returned by ChangePassword on a wrong current password.
	ErrCurrentPasswordIncorrect = errors.New("current password incorrect")
	// ErrUnauthenticated is returned when an operation needs an active session.
	ErrUnauthenticated = errors.New("not logged in")
)

// Session is the capability the auth core uses to bind and read the caller's identity.
// The HTTP layer backs it with a cookie session.
type Session interface {
	Identity() (string, bool)
	SetIdentity(email string) error
	Clear() error
}

// MatchMode selects how Login and ChangePassword locate the record to verify.
type MatchMode string

const (
	// MatchEmail compares the query against the email column only.
	MatchEmail MatchMode = "email"
	// MatchAnyField accepts a record when the query equals any of its fields.
	MatchAnyField MatchMode = "any"
)

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// AuthService defines authentication behaviour.
type AuthService interface {
	Register(ctx context.Context, sess Session, in RegisterInput) (UserRecord, error)
	Login(ctx context.Context, sess Session, email, password, sourceAddress string) (UserRecord, error)
	ChangePassword(ctx context.Context, sess Session, currentPassword, newPassword string) error
	Logout(sess Session) (bool, error)
	RecordFailedAttempt(ctx context.Context, sourceAddress string)
}
