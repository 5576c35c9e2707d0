// ABOUTME: Tests for the SQLite whitelist store
// ABOUTME: Covers add/remove/membership semantics and duplicate rejection

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestWhitelist(t *testing.T) *SQLiteWhitelist {
	t.Helper()
	s, err := NewSQLiteWhitelist(filepath.Join(t.TempDir(), "whitelist.db"))
	if err != nil {
		t.Fatalf("NewSQLiteWhitelist failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteWhitelist_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "nested", "whitelist.db")

	s, err := NewSQLiteWhitelist(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteWhitelist failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestAddUser(t *testing.T) {
	s := newTestWhitelist(t)
	ctx := context.Background()

	if err := s.AddUser(ctx, 439716429, "ivanov", "Ivan", "Ivanov"); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}

	ok, err := s.IsWhitelisted(ctx, 439716429)
	if err != nil {
		t.Fatalf("IsWhitelisted failed: %v", err)
	}
	if !ok {
		t.Error("expected user to be whitelisted after AddUser")
	}
}

func TestAddUser_Duplicate(t *testing.T) {
	s := newTestWhitelist(t)
	ctx := context.Background()

	if err := s.AddUser(ctx, 42, "", "", ""); err != nil {
		t.Fatalf("first AddUser failed: %v", err)
	}

	err := s.AddUser(ctx, 42, "other", "Other", "")
	if !errors.Is(err, ErrDuplicateUser) {
		t.Errorf("expected ErrDuplicateUser, got %v", err)
	}

	// The duplicate attempt must not have written anything
	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected 1 entry after duplicate add, got %d", len(users))
	}
}

func TestRemoveUser(t *testing.T) {
	s := newTestWhitelist(t)
	ctx := context.Background()

	if err := s.AddUser(ctx, 7, "", "", ""); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}

	if err := s.RemoveUser(ctx, 7); err != nil {
		t.Fatalf("RemoveUser failed: %v", err)
	}

	ok, err := s.IsWhitelisted(ctx, 7)
	if err != nil {
		t.Fatalf("IsWhitelisted failed: %v", err)
	}
	if ok {
		t.Error("expected user to be gone after RemoveUser")
	}
}

func TestRemoveUser_NotFound(t *testing.T) {
	s := newTestWhitelist(t)
	ctx := context.Background()

	err := s.RemoveUser(ctx, 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIsWhitelisted_Empty(t *testing.T) {
	s := newTestWhitelist(t)

	ok, err := s.IsWhitelisted(context.Background(), 1)
	if err != nil {
		t.Fatalf("IsWhitelisted failed: %v", err)
	}
	if ok {
		t.Error("expected false on empty whitelist")
	}
}

func TestListUsers(t *testing.T) {
	s := newTestWhitelist(t)
	ctx := context.Background()

	if err := s.AddUser(ctx, 100, "alice", "Alice", ""); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}
	if err := s.AddUser(ctx, 200, "", "Bob", "Smith"); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}

	if users[0].UserID != 100 || users[0].Username != "alice" || users[0].FirstName != "Alice" {
		t.Errorf("unexpected first entry: %+v", users[0])
	}
	if users[1].UserID != 200 || users[1].Username != "" || users[1].LastName != "Smith" {
		t.Errorf("unexpected second entry: %+v", users[1])
	}
}

func TestUserIDSet(t *testing.T) {
	s := newTestWhitelist(t)
	ctx := context.Background()

	for _, id := range []int64{10, 20, 30} {
		if err := s.AddUser(ctx, id, "", "", ""); err != nil {
			t.Fatalf("AddUser(%d) failed: %v", id, err)
		}
	}

	set, err := s.UserIDSet(ctx)
	if err != nil {
		t.Fatalf("UserIDSet failed: %v", err)
	}
	if len(set) != 3 {
		t.Fatalf("expected 3 IDs, got %d", len(set))
	}
	for _, id := range []int64{10, 20, 30} {
		if _, ok := set[id]; !ok {
			t.Errorf("expected ID %d in set", id)
		}
	}
}

func TestWhitelist_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "whitelist.db")

	s, err := NewSQLiteWhitelist(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteWhitelist failed: %v", err)
	}
	if err := s.AddUser(context.Background(), 55, "persisted", "", ""); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteWhitelist(dbPath)
	if err != nil {
		t.Fatalf("reopening failed: %v", err)
	}
	defer reopened.Close()

	ok, err := reopened.IsWhitelisted(context.Background(), 55)
	if err != nil {
		t.Fatalf("IsWhitelisted failed: %v", err)
	}
	if !ok {
		t.Error("expected membership to survive restart")
	}
}
