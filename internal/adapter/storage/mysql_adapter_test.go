package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/CarlosDBayona/booking-hold-integrity/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/reservations?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return db
}

func TestRecordReservation(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	journal := NewMySQLJournal(db)

	if err := journal.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	skuID := "test-sku-" + time.Now().Format("20060102150405.000")
	db.ExecContext(ctx, `DELETE FROM reservations WHERE sku_id = ?`, skuID)

	rec := domain.ConsumedRecord{
		SKUID:       skuID,
		UserID:      "test-user",
		CartID:      "test-cart",
		ConfirmedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := journal.RecordReservation(ctx, rec); err != nil {
		t.Fatalf("RecordReservation failed: %v", err)
	}

	var count int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE sku_id = ?`, skuID).Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 journaled reservation, got %d", count)
	}

	var userID, cartID string
	db.QueryRowContext(ctx, `SELECT user_id, cart_id FROM reservations WHERE sku_id = ?`, skuID).Scan(&userID, &cartID)
	if userID != "test-user" || cartID != "test-cart" {
		t.Errorf("unexpected row: user=%s cart=%s", userID, cartID)
	}

	db.ExecContext(ctx, `DELETE FROM reservations WHERE sku_id = ?`, skuID)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	journal := NewMySQLJournal(db)

	for i := 0; i < 2; i++ {
		if err := journal.EnsureSchema(ctx); err != nil {
			t.Fatalf("EnsureSchema run %d failed: %v", i+1, err)
		}
	}
}
