package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/CarlosDBayona/booking-hold-integrity/internal/core/domain"
)

const reservationsSchema = `
CREATE TABLE IF NOT EXISTS reservations (
	id CHAR(36) PRIMARY KEY,
	sku_id VARCHAR(128) NOT NULL,
	user_id VARCHAR(128) NOT NULL,
	cart_id VARCHAR(128) NOT NULL,
	confirmed_at DATETIME(3) NOT NULL,
	KEY idx_reservations_sku (sku_id)
)`

// MySQLJournal is the write-behind audit store for confirmed reservations.
// It is fed by the journal worker pool and plays no part in the locking
// protocol itself.
type MySQLJournal struct {
	db *sql.DB
}

func NewMySQLJournal(db *sql.DB) *MySQLJournal {
	return &MySQLJournal{db: db}
}

// EnsureSchema creates the reservations table if it does not exist.
func (m *MySQLJournal) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, reservationsSchema); err != nil {
		return fmt.Errorf("ensure reservations schema: %w", err)
	}
	return nil
}

func (m *MySQLJournal) RecordReservation(ctx context.Context, rec domain.ConsumedRecord) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO reservations (id, sku_id, user_id, cart_id, confirmed_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), rec.SKUID, rec.UserID, rec.CartID, rec.ConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}
