package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"socialapi/internal/models"
)

// MessageStore issues the message table queries.
type MessageStore struct {
	db      *sql.DB
	dialect dialect
	log     logrus.FieldLogger
}

// NewMessageStore builds a MessageStore for the given driver.
func NewMessageStore(db *sql.DB, driver string, logger logrus.FieldLogger) *MessageStore {
	return &MessageStore{
		db:      db,
		dialect: newDialect(driver),
		log:     logger.WithField("store", "message"),
	}
}

// List returns every message ordered by id.
func (s *MessageStore) List(ctx context.Context) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM message ORDER BY message_id`)
	if err != nil {
		return nil, s.fail("list messages", err, nil)
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, s.fail("list messages", err, nil)
	}
	return messages, nil
}

// FindByID looks a message up by primary key.
func (s *MessageStore) FindByID(ctx context.Context, id int64) (*models.Message, error) {
	msg, err := s.findByID(ctx, s.db, id)
	if err != nil {
		return nil, s.fail("find message", err, logrus.Fields{"message_id": id})
	}
	return msg, nil
}

// Insert persists the message and returns it with its generated id.
func (s *MessageStore) Insert(ctx context.Context, msg models.Message) (*models.Message, error) {
	id, err := s.dialect.insert(ctx, s.db, "message_id",
		`INSERT INTO message (posted_by, message_text, time_posted_epoch) VALUES (?, ?, ?)`,
		msg.PostedBy, msg.Text, msg.TimePostedEpoch,
	)
	if err != nil {
		return nil, s.fail("insert message", err, logrus.Fields{"posted_by": msg.PostedBy})
	}
	msg.ID = id
	return &msg, nil
}

// Delete removes the message and returns the row as it was before deletion.
// A missing id yields ErrNotFound and leaves the table untouched.
func (s *MessageStore) Delete(ctx context.Context, id int64) (*models.Message, error) {
	var deleted *models.Message
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.findByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM message WHERE message_id = ?`), id); err != nil {
			return err
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return nil, s.fail("delete message", err, logrus.Fields{"message_id": id})
	}
	return deleted, nil
}

// UpdateText replaces the text of an existing message. Poster and timestamp
// are left as stored.
func (s *MessageStore) UpdateText(ctx context.Context, id int64, text string) (*models.Message, error) {
	var updated *models.Message
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.findByID(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			s.dialect.rebind(`UPDATE message SET message_text = ? WHERE message_id = ?`), text, id,
		); err != nil {
			return err
		}
		msg, err := s.findByID(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = msg
		return nil
	})
	if err != nil {
		return nil, s.fail("update message", err, logrus.Fields{"message_id": id})
	}
	return updated, nil
}

func (s *MessageStore) findByID(ctx context.Context, q querier, id int64) (*models.Message, error) {
	var m models.Message
	err := q.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT `+messageColumns+` FROM message WHERE message_id = ?`), id,
	).Scan(&m.ID, &m.PostedBy, &m.Text, &m.TimePostedEpoch)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MessageStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *MessageStore) fail(op string, err error, fields logrus.Fields) error {
	return logFailure(s.log, op, err, fields)
}
