package core

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Config holds runtime settings for the site process.
type Config struct {
	Port               string   // HTTP listen port (e.g., "3000")
	SessionKey         string   // Cookie signing/encryption key
	CookieSecure       bool     // Whether to set Secure flag on session cookie
	CookieSameSite     string   // SameSite policy: Strict/Lax/None
	LogDir             string   // Directory to write application logs
	DataDir            string   // Base directory for the flat-file resources below
	UserFile           string   // TSV credential file (id, first, last, email, hash)
	FailedLoginFile    string   // TSV audit file of failed logins
	DenylistFile       string   // newline-separated common password substrings
	WorkoutsFile       string   // optional YAML workout catalog; empty -> embedded default
	CredentialBackend  string   // "file" or "postgres"
	DatabaseURL        string   // PostgreSQL DSN, used when CredentialBackend is postgres
	RedisURL           string   // Redis URL for the failed-login mirror; empty disables it
	BcryptCost         int      // bcrypt work factor
	LoginMatch         string   // "email" (default) or "any" for legacy any-column matching
	AllowedOrigins     []string // allowed origins for CORS/CSRF origin check
	TrustedProxies     []string // proxies whose X-Forwarded-For is honoured for the client address
	CreateMissingFiles bool     // create empty data files at startup
}

// Load populates Config from environment variables with sane defaults.
func Load() Config {
	dataDir := firstNonEmpty(os.Getenv("DATA_DIR"), "./data")
	return Config{
		Port:               firstNonEmpty(os.Getenv("PORT"), "3000"),
		SessionKey:         firstNonEmpty(os.Getenv("SESSION_KEY"), "change-this-session-key"),
		CookieSecure:       boolFromEnv("COOKIE_SECURE", false),
		CookieSameSite:     firstNonEmpty(os.Getenv("COOKIE_SAMESITE"), "Lax"),
		LogDir:             firstNonEmpty(os.Getenv("LOG_DIR"), "./logs"),
		DataDir:            dataDir,
		UserFile:           firstNonEmpty(os.Getenv("USER_FILE"), filepath.Join(dataDir, "user_info.txt")),
		FailedLoginFile:    firstNonEmpty(os.Getenv("FAILED_LOGIN_FILE"), filepath.Join(dataDir, "failed_logins.txt")),
		DenylistFile:       firstNonEmpty(os.Getenv("DENYLIST_FILE"), filepath.Join(dataDir, "CommonPassword.txt")),
		WorkoutsFile:       os.Getenv("WORKOUTS_FILE"),
		CredentialBackend:  strings.ToLower(firstNonEmpty(os.Getenv("CREDENTIAL_BACKEND"), "file")),
		DatabaseURL:        firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("POSTGRES_URL")),
		RedisURL:           os.Getenv("REDIS_URL"),
		BcryptCost:         intFromEnv("BCRYPT_COST", bcrypt.DefaultCost),
		LoginMatch:         strings.ToLower(firstNonEmpty(os.Getenv("LOGIN_MATCH"), string(MatchEmail))),
		AllowedOrigins:     parseCSV(os.Getenv("ALLOWED_ORIGINS")),
		TrustedProxies:     parseCSV(os.Getenv("TRUSTED_PROXIES")),
		CreateMissingFiles: boolFromEnv("CREATE_MISSING_FILES", true),
	}
}

// MatchMode converts the LOGIN_MATCH setting, defaulting to email-column matching.
func (c Config) MatchMode() MatchMode {
	if MatchMode(c.LoginMatch) == MatchAnyField {
		return MatchAnyField
	}
	return MatchEmail
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// boolFromEnv reads a boolean from env var name, falling back to defaultVal when empty or invalid.
func boolFromEnv(name string, defaultVal bool) bool {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// intFromEnv reads an int from env var name, falling back to defaultVal when empty or invalid.
func intFromEnv(name string, defaultVal int) int {
	if v := os.Getenv(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// parseCSV splits comma-separated list and trims spaces; empty entries are skipped.
func parseCSV(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
