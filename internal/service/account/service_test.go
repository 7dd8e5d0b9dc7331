package account

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"socialapi/internal/config"
	"socialapi/internal/logging"
	"socialapi/internal/models"
	"socialapi/internal/storage"
)

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(storage.NewAccountStore(db, "sqlite3", logging.Discard())), db
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, models.Account{Username: "alice", Password: "pass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if first.ID <= 0 || first.Username != "alice" || first.Password != "pass" {
		t.Fatalf("unexpected account %+v", first)
	}
	if _, err := svc.Register(ctx, models.Account{Username: "alice", Password: "other"}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	accounts, err := svc.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("expected exactly one account, got %d", len(accounts))
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, models.Account{Username: "bob", Password: "secret"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := svc.Authenticate(ctx, models.Account{Username: "bob", Password: "secret"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if *got != *created {
		t.Fatalf("want %+v got %+v", created, got)
	}

	cases := []models.Account{
		{Username: "bob", Password: "Secret"},
		{Username: "bob", Password: "secret "},
		{Username: "nobody", Password: "secret"},
	}
	for _, c := range cases {
		if _, err := svc.Authenticate(ctx, c); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("authenticate %+v: expected ErrInvalidCredentials, got %v", c, err)
		}
	}
}

func TestFindByIDAndListMessagesFor(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, models.Account{Username: "carol", Password: "pass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := svc.FindByID(ctx, created.ID)
	if err != nil || got.Username != "carol" {
		t.Fatalf("find by id: %+v, %v", got, err)
	}
	if _, err := svc.FindByID(ctx, created.ID+1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	msgs, err := svc.ListMessagesFor(ctx, created.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}

	if _, err := db.Exec(`INSERT INTO message (posted_by, message_text, time_posted_epoch) VALUES (?, ?, ?)`, created.ID, "hi", 1); err != nil {
		t.Fatalf("insert message: %v", err)
	}
	msgs, err = svc.ListMessagesFor(ctx, created.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "hi" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

type failingStore struct {
	Store
	err error
}

func (f failingStore) FindByUsername(context.Context, string) (*models.Account, error) {
	return nil, f.err
}

func TestStorageFailureIsNotReportedAsRuleViolation(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewService(failingStore{err: boom})
	ctx := context.Background()

	_, err := svc.Register(ctx, models.Account{Username: "dave", Password: "pass"})
	if !errors.Is(err, boom) || errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("register: expected wrapped storage failure, got %v", err)
	}
	_, err = svc.Authenticate(ctx, models.Account{Username: "dave", Password: "pass"})
	if !errors.Is(err, boom) || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("authenticate: expected wrapped storage failure, got %v", err)
	}
}
