package core

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

const (
	minPasswordLength = 12
	// bcrypt rejects longer inputs
	maxPasswordBytes = 72
	passwordSymbols  = "#?!@$%^&*-_"
)

// passwordRule inspects a candidate and returns a typed error when it fails.
type passwordRule func(candidate string, denylist []string) error

// PasswordPolicy checks candidate passwords against format rules and a denylist file.
// The denylist is read on every call so that a missing file always blocks.
type PasswordPolicy struct {
	denylistPath string
	rules        []passwordRule
}

// NewPasswordPolicy returns the default rule set backed by the given denylist file.
func NewPasswordPolicy(denylistPath string) *PasswordPolicy {
	return &PasswordPolicy{
		denylistPath: denylistPath,
		rules: []passwordRule{
			denylistRule,
			lengthRule,
			maxBytesRule,
			containsRule("an uppercase letter", asciiRange('A', 'Z')),
			containsRule("a lowercase letter", asciiRange('a', 'z')),
			containsRule("a number", asciiRange('0', '9')),
			containsRule("a special character ("+passwordSymbols+")", func(r rune) bool {
				return strings.ContainsRune(passwordSymbols, r)
			}),
		},
	}
}

// Validate returns nil when every rule passes, otherwise the first failure wrapping
// ErrWeakPassword, ErrCommonPassword or ErrPolicyUnavailable.
func (p *PasswordPolicy) Validate(candidate string) error {
	denylist, err := p.loadDenylist()
	if err != nil {
		return err
	}
	for _, rule := range p.rules {
		if err := rule(candidate, denylist); err != nil {
			return err
		}
	}
	return nil
}

func (p *PasswordPolicy) loadDenylist() ([]string, error) {
	f, err := os.Open(p.denylistPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPolicyUnavailable, err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		w := strings.ToLower(strings.TrimSpace(scanner.Text()))
		// an empty entry would match every password
		if w == "" {
			continue
		}
		words = append(words, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPolicyUnavailable, err)
	}
	return words, nil
}

func denylistRule(candidate string, denylist []string) error {
	lower := strings.ToLower(candidate)
	for _, w := range denylist {
		if strings.Contains(lower, w) {
			return ErrCommonPassword
		}
	}
	return nil
}

func lengthRule(candidate string, _ []string) error {
	if len([]rune(candidate)) < minPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, minPasswordLength)
	}
	return nil
}

func maxBytesRule(candidate string, _ []string) error {
	if len(candidate) > maxPasswordBytes {
		return fmt.Errorf("%w: must be at most %d bytes", ErrWeakPassword, maxPasswordBytes)
	}
	return nil
}

func asciiRange(lo, hi rune) func(rune) bool {
	return func(r rune) bool { return r >= lo && r <= hi }
}

func containsRule(what string, match func(rune) bool) passwordRule {
	return func(candidate string, _ []string) error {
		if strings.IndexFunc(candidate, match) < 0 {
			return fmt.Errorf("%w: must contain %s", ErrWeakPassword, what)
		}
		return nil
	}
}
