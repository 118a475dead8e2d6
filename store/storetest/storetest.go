// Package storetest provides the shared "open a real Postgres test
// database" helper store and release package tests build on, modeled on the
// teacher's engine/api/test.SetupPG: it assumes a reachable Postgres
// instance, configured the same way the teacher's own dao_test.go suite
// does (environment variables, falling back to sane local defaults), and
// skips the test outright if connecting fails rather than failing the whole
// suite on machines with no database configured.
package storetest

import (
	"context"
	"os"
	"testing"

	"github.com/yplabs-ltd/codepush-server/store"
)

// SetupPG opens a *store.Store against the CODEPUSH_TEST_DB_* environment,
// skipping t if no test database is reachable.
func SetupPG(t *testing.T) *store.Store {
	t.Helper()

	cfg := store.Config{
		Host:     envOr("CODEPUSH_TEST_DB_HOST", "localhost"),
		Port:     envOr("CODEPUSH_TEST_DB_PORT", "5432"),
		User:     envOr("CODEPUSH_TEST_DB_USER", "postgres"),
		Password: envOr("CODEPUSH_TEST_DB_PASSWORD", "postgres"),
		Name:     envOr("CODEPUSH_TEST_DB_NAME", "codepush_test"),
		SSLMode:  "disable",
		MaxConns: 5,
	}

	db, err := store.New(context.Background(), cfg)
	if err != nil {
		t.Skipf("storetest: no reachable postgres test database: %v", err)
	}
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
