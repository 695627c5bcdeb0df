package store

import (
	"context"
	"errors"
	"testing"

	"github.com/Roylkrishna/srg-sub001/internal/db"
	"github.com/Roylkrishna/srg-sub001/internal/model"
)

func newAccount(username, email, role string) *model.Account {
	return &model.Account{
		FirstName:    "First",
		LastName:     "Last",
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		IsActive:     true,
	}
}

func TestCreateAndFindByID(t *testing.T) {
	accounts := NewAccounts(db.NewTestDB(t))
	ctx := context.Background()

	user, err := accounts.Create(ctx, newAccount("testuser", "t@x.com", model.RoleUser))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID == 0 {
		t.Error("expected generated id")
	}
	if user.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", user.Username)
	}
	if !user.IsActive {
		t.Error("expected active user")
	}
	if user.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	got, err := accounts.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Email != "t@x.com" {
		t.Errorf("expected email 't@x.com', got %q", got.Email)
	}

	missing, err := accounts.FindByID(ctx, 999)
	if err != nil {
		t.Fatalf("FindByID missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestCreateDuplicate(t *testing.T) {
	accounts := NewAccounts(db.NewTestDB(t))
	ctx := context.Background()

	if _, err := accounts.Create(ctx, newAccount("alice", "a@x.com", model.RoleUser)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := accounts.Create(ctx, newAccount("alice", "other@x.com", model.RoleUser))
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey for username, got %v", err)
	}

	_, err = accounts.Create(ctx, newAccount("bob", "a@x.com", model.RoleUser))
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey for email, got %v", err)
	}
}

func TestFindByUsernameOrEmail(t *testing.T) {
	accounts := NewAccounts(db.NewTestDB(t))
	ctx := context.Background()

	alice, _ := accounts.Create(ctx, newAccount("alice", "a@x.com", model.RoleUser))
	bob, _ := accounts.Create(ctx, newAccount("bob", "b@x.com", model.RoleUser))

	tests := []struct {
		name     string
		username string
		email    string
		wantID   int64
	}{
		{"by username", "alice", "", alice.ID},
		{"by email", "nobody", "b@x.com", bob.ID},
		{"login identifier as email", "a@x.com", "a@x.com", alice.ID},
		{"username wins over email", "bob", "a@x.com", bob.ID},
		{"no match", "carol", "c@x.com", 0},
		{"empty email matches nothing", "carol", "", 0},
	}

	for _, tt := range tests {
		got, err := accounts.FindByUsernameOrEmail(ctx, tt.username, tt.email)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if tt.wantID == 0 {
			if got != nil {
				t.Errorf("%s: expected nil, got %q", tt.name, got.Username)
			}
			continue
		}
		if got == nil || got.ID != tt.wantID {
			t.Errorf("%s: expected id %d, got %+v", tt.name, tt.wantID, got)
		}
	}
}

func TestSave(t *testing.T) {
	accounts := NewAccounts(db.NewTestDB(t))
	ctx := context.Background()

	user, _ := accounts.Create(ctx, newAccount("pwuser", "pw@x.com", model.RoleUser))
	other, _ := accounts.Create(ctx, newAccount("other", "o@x.com", model.RoleUser))

	user.PasswordHash = "newhash"
	user.Role = model.RoleManager
	user.IsActive = false
	if err := accounts.Save(ctx, user); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, _ := accounts.FindByID(ctx, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}
	if got.Role != model.RoleManager {
		t.Errorf("expected role manager, got %q", got.Role)
	}
	if got.IsActive {
		t.Error("expected inactive user")
	}

	other.Email = "pw@x.com"
	if err := accounts.Save(ctx, other); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	ghost := newAccount("ghost", "g@x.com", model.RoleUser)
	ghost.ID = 999
	if err := accounts.Save(ctx, ghost); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListCountDelete(t *testing.T) {
	accounts := NewAccounts(db.NewTestDB(t))
	ctx := context.Background()

	a, _ := accounts.Create(ctx, newAccount("a", "a@x.com", model.RoleUser))
	accounts.Create(ctx, newAccount("b", "b@x.com", model.RoleManager))

	users, err := accounts.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}

	if err := accounts.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := accounts.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}

	n, err := accounts.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 user after delete, got %d", n)
	}
}
