package domain

import "time"

// Claimant identifies who holds or confirms a lock. Ownership is compared by
// value; the workflow never trusts caller identity beyond this pair.
type Claimant struct {
	UserID string `json:"userId"`
	CartID string `json:"cartId"`
}

// LockPayload is the JSON document stored under lock:sku:<skuId>. It is
// written once at acquisition and never updated.
type LockPayload struct {
	SKUID     string    `json:"skuId"`
	UserID    string    `json:"userId"`
	CartID    string    `json:"cartId"`
	CreatedAt time.Time `json:"createdAt"`
}

// OwnedBy reports whether the lock was created by the given claimant.
func (p LockPayload) OwnedBy(c Claimant) bool {
	return p.UserID == c.UserID && p.CartID == c.CartID
}

// Lock is a live hold read back from the store. TTLSecondsRemaining is derived
// from the store on every read, never cached.
type Lock struct {
	Payload             LockPayload
	TTLSecondsRemaining int64
}

// AcquireResult reports the outcome of a lock acquisition attempt. When
// Acquired is false, Lock is a best-effort snapshot of the current holder; it
// may be nil if the winning lock expired before it could be read back.
type AcquireResult struct {
	Acquired bool
	Lock     *Lock
}
