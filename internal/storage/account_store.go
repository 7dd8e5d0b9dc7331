package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"socialapi/internal/models"
)

const (
	accountColumns = `account_id, username, password`
	messageColumns = `message_id, posted_by, message_text, time_posted_epoch`
)

// AccountStore issues the account table queries.
type AccountStore struct {
	db      *sql.DB
	dialect dialect
	log     logrus.FieldLogger
}

// NewAccountStore builds an AccountStore for the given driver.
func NewAccountStore(db *sql.DB, driver string, logger logrus.FieldLogger) *AccountStore {
	return &AccountStore{
		db:      db,
		dialect: newDialect(driver),
		log:     logger.WithField("store", "account"),
	}
}

// List returns every account ordered by id.
func (s *AccountStore) List(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM account ORDER BY account_id`)
	if err != nil {
		return nil, s.fail("list accounts", err, nil)
	}
	defer rows.Close()

	accounts := make([]models.Account, 0)
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Username, &a.Password); err != nil {
			return nil, s.fail("scan account", err, nil)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("list accounts", err, nil)
	}
	return accounts, nil
}

// FindByUsername matches the username exactly.
func (s *AccountStore) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT `+accountColumns+` FROM account WHERE username = ?`), username,
	)
	return s.scanOne(row, "find account by username", logrus.Fields{"username": username})
}

// FindByID looks an account up by primary key.
func (s *AccountStore) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT `+accountColumns+` FROM account WHERE account_id = ?`), id,
	)
	return s.scanOne(row, "find account by id", logrus.Fields{"account_id": id})
}

// Insert persists the account and returns it with its generated id.
// Uniqueness of the username is enforced by the schema only.
func (s *AccountStore) Insert(ctx context.Context, account models.Account) (*models.Account, error) {
	id, err := s.dialect.insert(ctx, s.db, "account_id",
		`INSERT INTO account (username, password) VALUES (?, ?)`,
		account.Username, account.Password,
	)
	if err != nil {
		return nil, s.fail("insert account", err, logrus.Fields{"username": account.Username})
	}
	account.ID = id
	return &account, nil
}

// ListMessages returns every message posted by the account.
func (s *AccountStore) ListMessages(ctx context.Context, accountID int64) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT m.message_id, m.posted_by, m.message_text, m.time_posted_epoch
		 FROM message m
		 INNER JOIN account a ON a.account_id = m.posted_by
		 WHERE a.account_id = ?
		 ORDER BY m.message_id`), accountID,
	)
	if err != nil {
		return nil, s.fail("list account messages", err, logrus.Fields{"account_id": accountID})
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, s.fail("list account messages", err, logrus.Fields{"account_id": accountID})
	}
	return messages, nil
}

func (s *AccountStore) scanOne(row *sql.Row, op string, fields logrus.Fields) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.Username, &a.Password); err != nil {
		return nil, s.fail(op, err, fields)
	}
	return &a, nil
}

func (s *AccountStore) fail(op string, err error, fields logrus.Fields) error {
	return logFailure(s.log, op, err, fields)
}

// logFailure logs driver failures once and converts them to a wrapped error.
// Missing rows are expected and only reach the debug level.
func logFailure(logger logrus.FieldLogger, op string, err error, fields logrus.Fields) error {
	entry := logger.WithFields(fields).WithField("op", op)
	sentinel := classify(err)
	if errors.Is(sentinel, ErrNotFound) {
		entry.Debug("record not found")
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	entry.WithError(err).Error("storage operation failed")
	if sentinel != nil {
		return fmt.Errorf("%s: %w: %w", op, sentinel, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.PostedBy, &m.Text, &m.TimePostedEpoch); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
