package domain

import "time"

// ConsumedRecord is the permanent one-time claim stored under
// reserved:sku:<skuId>. It is created exactly once by a successful confirm and
// never mutated; the store drops it after the retention window.
type ConsumedRecord struct {
	SKUID       string    `json:"skuId"`
	UserID      string    `json:"userId"`
	CartID      string    `json:"cartId"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}
