package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/sessions"

	"workout-site/core"
)

func main() {
	cfg := core.Load()
	ctx := context.Background()
	startedAt := time.Now()

	logCloser, err := core.SetupLogging(cfg, "site.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	if err := core.EnsureDataFiles(cfg); err != nil {
		log.Fatalf("failed to prepare data files: %v", err)
	}

	users, closeUsers, err := core.OpenCredentialStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open credential store: %v", err)
	}
	defer closeUsers()

	failures := core.FailedLoginLogs{core.NewFileFailedLoginLog(cfg.FailedLoginFile)}
	var mirror *core.RedisFailedLoginLog
	if cfg.RedisURL != "" {
		redisClient, err := core.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer redisClient.Close()
		mirror = core.NewRedisFailedLoginLog(redisClient)
		failures = append(failures, mirror)
	}

	content, err := core.LoadSiteContent(cfg.WorkoutsFile, startedAt)
	if err != nil {
		log.Fatalf("failed to load workouts: %v", err)
	}

	// Gorilla cookie store for session management.
	store := sessions.NewCookieStore([]byte(cfg.SessionKey))

	authService := core.NewService(
		users,
		core.NewPasswordPolicy(cfg.DenylistFile),
		core.NewBcryptHasher(cfg.BcryptCost),
		failures,
		cfg.MatchMode(),
	)
	status := core.NewStatusCollector(users, mirror, startedAt)

	router := core.NewRouter(cfg, store, authService, content, status)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting site on %s backend=%s login_match=%s", addr, cfg.CredentialBackend, cfg.MatchMode())
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
