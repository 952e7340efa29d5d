package model

import "time"

// DeliveryStatus is the claim state of a delivery.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "PENDING"
	DeliveryClaimed DeliveryStatus = "CLAIMED"
)

// Delivery is a pending hand-off of items or currency to an account,
// claimed exactly once. ListingID links a delivery back to the auction
// listing that produced it (empty for deliveries from other sources) so a
// reconciliation pass can detect a closed listing with no recorded payout.
type Delivery struct {
	DeliveryID   string         `json:"delivery_id"`
	OwnerAccount string         `json:"owner_account"`
	ListingID    string         `json:"listing_id,omitempty"`
	Type         string         `json:"type"`
	ItemHash     string         `json:"item_hash"`
	ItemJSON     string         `json:"item_json"`
	Count        int            `json:"count"`
	CurrencyID   string         `json:"currency_id"`
	Amount       int64          `json:"amount"`
	Status       DeliveryStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	ClaimedAt    time.Time      `json:"claimed_at,omitzero"`
}

// Claimed returns a copy marked CLAIMED at the given time.
func (d Delivery) Claimed(at time.Time) Delivery {
	d.Status = DeliveryClaimed
	d.ClaimedAt = at
	d.UpdatedAt = at
	return d
}

// Touched returns a copy with the last-attempt timestamp refreshed.
func (d Delivery) Touched(at time.Time) Delivery {
	d.UpdatedAt = at
	return d
}
