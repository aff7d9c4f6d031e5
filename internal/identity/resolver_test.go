package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dariovega/vidora-backend/internal/users"
	"github.com/dariovega/vidora-backend/pkg/db/models"
	"github.com/dariovega/vidora-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A uniquely named shared-cache memory DB keeps the schema visible to every
	// pooled connection; a plain ":memory:" DSN gives each connection its own
	// empty database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	schema := []string{`
CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  subscription_plan TEXT,
  subscription_status TEXT,
  subscription_end_date DATETIME,
  credits_balance INTEGER NOT NULL DEFAULT 0,
  credits_flex INTEGER NOT NULL DEFAULT 0,
  credits_total INTEGER NOT NULL DEFAULT 0,
  credits_spent INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE email_aliases (
  id TEXT PRIMARY KEY,
  alias_email TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  note TEXT,
  created_at DATETIME
);`, `
CREATE TABLE unmatched_email_logs (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  event_type TEXT NOT NULL,
  webhook_payload TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  resolved_user_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}

func seedUser(t *testing.T, conn *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{ID: uuid.New(), Email: email}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func newResolver(t *testing.T, conn *gorm.DB, remapJSON string) *Resolver {
	t.Helper()
	resolver, err := NewResolver(users.NewRepository(conn), NewRepository(conn), remapJSON, nil, nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return resolver
}

func TestResolver_ExactMatchWins(t *testing.T) {
	conn := newTestDB(t)
	want := seedUser(t, conn, "a@x.com")
	seedUser(t, conn, "A@X.com")

	resolver := newResolver(t, conn, "")
	user, match := resolver.Resolve(context.Background(), "a@x.com", "subscription.paid")
	if user == nil || user.ID != want.ID {
		t.Fatalf("expected exact user, got %+v", user)
	}
	if match != MatchExact {
		t.Fatalf("expected exact match, got %s", match)
	}
}

func TestResolver_CaseInsensitiveFallback(t *testing.T) {
	conn := newTestDB(t)
	want := seedUser(t, conn, "mixed@x.com")

	resolver := newResolver(t, conn, "")
	user, match := resolver.Resolve(context.Background(), "MIXED@X.COM", "subscription.paid")
	if user == nil || user.ID != want.ID {
		t.Fatalf("expected case-insensitive user, got %+v", user)
	}
	if match != MatchCaseInsensitive {
		t.Fatalf("expected case_insensitive match, got %s", match)
	}
}

func TestResolver_AliasBeforeRemap(t *testing.T) {
	conn := newTestDB(t)
	primary := seedUser(t, conn, "primary@x.com")
	decoy := seedUser(t, conn, "decoy@x.com")
	if err := conn.Create(&models.EmailAlias{ID: uuid.New(), AliasEmail: "old@x.com", UserID: primary.ID}).Error; err != nil {
		t.Fatalf("seed alias: %v", err)
	}

	// The remap also knows old@x.com, pointing at the wrong user. The alias
	// step must win.
	remap := `{"old@x.com": "decoy@x.com"}`
	resolver := newResolver(t, conn, remap)
	user, match := resolver.Resolve(context.Background(), "old@x.com", "payment.succeeded")
	if user == nil || user.ID != primary.ID {
		t.Fatalf("expected alias primary %s, got %+v (decoy %s)", primary.ID, user, decoy.ID)
	}
	if match != MatchAlias {
		t.Fatalf("expected alias match, got %s", match)
	}
}

func TestResolver_RemapLastResort(t *testing.T) {
	conn := newTestDB(t)
	want := seedUser(t, conn, "account@x.com")

	resolver := newResolver(t, conn, `{"Typo@X.com": "account@x.com"}`)
	user, match := resolver.Resolve(context.Background(), "typo@x.com", "payment.succeeded")
	if user == nil || user.ID != want.ID {
		t.Fatalf("expected remapped user, got %+v", user)
	}
	if match != MatchRemap {
		t.Fatalf("expected remap match, got %s", match)
	}
}

func TestResolver_TotalMissParksOnce(t *testing.T) {
	conn := newTestDB(t)
	seedUser(t, conn, "someone@x.com")

	payload := json.RawMessage(`{"eventType":"subscription.paid","object":{"customer":{"email":"ghost@x.com"}}}`)
	resolver := newResolver(t, conn, "")
	user, match := resolver.ResolveOrPark(context.Background(), "ghost@x.com", "subscription.paid", payload)
	if user != nil {
		t.Fatalf("expected no user, got %+v", user)
	}
	if match != MatchNone {
		t.Fatalf("expected none, got %s", match)
	}

	var entries []models.UnmatchedEmailLog
	if err := conn.Find(&entries).Error; err != nil {
		t.Fatalf("list unmatched: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one unmatched entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Email != "ghost@x.com" {
		t.Fatalf("unexpected email %q", entry.Email)
	}
	if entry.Status != enums.UnmatchedEmailStatusPending {
		t.Fatalf("expected pending status, got %s", entry.Status)
	}
	if string(entry.WebhookPayload) != string(payload) {
		t.Fatalf("payload not retained verbatim: %s", entry.WebhookPayload)
	}
}

func TestResolver_AliasStepErrorFallsThrough(t *testing.T) {
	conn := newTestDB(t)
	want := seedUser(t, conn, "account@x.com")

	// Dropping the alias table forces a store error at the alias step; the
	// chain must continue to the remap rather than propagate.
	if err := conn.Exec("DROP TABLE email_aliases").Error; err != nil {
		t.Fatalf("drop table: %v", err)
	}

	resolver := newResolver(t, conn, `{"lost@x.com": "account@x.com"}`)
	user, match := resolver.Resolve(context.Background(), "lost@x.com", "payment.succeeded")
	if user == nil || user.ID != want.ID {
		t.Fatalf("expected remapped user despite alias error, got %+v", user)
	}
	if match != MatchRemap {
		t.Fatalf("expected remap match, got %s", match)
	}
}

func TestNewResolver_RejectsBadRemapJSON(t *testing.T) {
	conn := newTestDB(t)
	if _, err := NewResolver(users.NewRepository(conn), NewRepository(conn), "{not json", nil, nil); err == nil {
		t.Fatalf("expected error for malformed remap JSON")
	}
}
