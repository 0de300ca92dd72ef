package port

import (
	"context"

	"github.com/CarlosDBayona/booking-hold-integrity/internal/core/domain"
)

// ReservationJournal persists confirmed reservations for audit. Writes are
// fed by a background worker pool; the consumed record in the key-value store
// remains authoritative, so a journal failure never un-confirms a reservation.
type ReservationJournal interface {
	RecordReservation(ctx context.Context, rec domain.ConsumedRecord) error
}
