package schema

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return conn
}

func TestColumnProbe_ResolvesFirstPresentCandidate(t *testing.T) {
	conn := newTestDB(t)
	if err := conn.Exec("CREATE TABLE subscriptions (id text, provider_subscription_id text)").Error; err != nil {
		t.Fatalf("create table: %v", err)
	}

	probe, err := NewSubscriptionIDProbe(conn, nil, "")
	if err != nil {
		t.Fatalf("new probe: %v", err)
	}

	col, err := probe.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if col != "provider_subscription_id" {
		t.Fatalf("expected provider_subscription_id, got %s", col)
	}
}

func TestColumnProbe_CachesFirstSuccess(t *testing.T) {
	conn := newTestDB(t)
	if err := conn.Exec("CREATE TABLE subscriptions (id text, creem_subscription_id text)").Error; err != nil {
		t.Fatalf("create table: %v", err)
	}

	probe, err := NewSubscriptionIDProbe(conn, nil, "")
	if err != nil {
		t.Fatalf("new probe: %v", err)
	}

	col, err := probe.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if col != "creem_subscription_id" {
		t.Fatalf("expected creem_subscription_id, got %s", col)
	}

	// Dropping the table must not matter once resolved.
	if err := conn.Exec("DROP TABLE subscriptions").Error; err != nil {
		t.Fatalf("drop table: %v", err)
	}
	col, err = probe.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve after drop: %v", err)
	}
	if col != "creem_subscription_id" {
		t.Fatalf("expected cached value, got %s", col)
	}
}

func TestColumnProbe_PinnedSkipsProbing(t *testing.T) {
	probe, err := NewSubscriptionIDProbe(nil, nil, "creem_subscription_id")
	if err != nil {
		t.Fatalf("new probe: %v", err)
	}
	col, err := probe.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if col != "creem_subscription_id" {
		t.Fatalf("expected pinned column, got %s", col)
	}
}

func TestColumnProbe_AllCandidatesMissing(t *testing.T) {
	conn := newTestDB(t)
	if err := conn.Exec("CREATE TABLE subscriptions (id text)").Error; err != nil {
		t.Fatalf("create table: %v", err)
	}

	probe, err := NewSubscriptionIDProbe(conn, nil, "")
	if err != nil {
		t.Fatalf("new probe: %v", err)
	}
	if _, err := probe.Resolve(context.Background()); err == nil {
		t.Fatalf("expected error when no candidate resolves")
	}
}

func TestNewColumnProbe_Validation(t *testing.T) {
	conn := newTestDB(t)
	if _, err := NewColumnProbe(conn, nil, "", SubscriptionIDCandidates, ""); err == nil {
		t.Fatalf("expected error for empty table")
	}
	if _, err := NewColumnProbe(conn, nil, "subscriptions", nil, ""); err == nil {
		t.Fatalf("expected error for empty candidates")
	}
	if _, err := NewColumnProbe(nil, nil, "subscriptions", SubscriptionIDCandidates, ""); err == nil {
		t.Fatalf("expected error for nil connection without pin")
	}
}
