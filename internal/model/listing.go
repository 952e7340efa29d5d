package model

import "time"

// ListingStatus is the lifecycle state of an auction listing.
type ListingStatus string

const (
	ListingOpen      ListingStatus = "OPEN"
	ListingSold      ListingStatus = "SOLD"
	ListingExpired   ListingStatus = "EXPIRED"
	ListingCancelled ListingStatus = "CANCELLED"
)

// AuctionListing is a seller-initiated, time-bounded sale.
// The store does not enforce a status transition graph; callers drive it.
type AuctionListing struct {
	ListingID     string        `json:"listing_id"`
	SellerAccount string        `json:"seller_account"`
	RegistryID    string        `json:"registry_id"`
	ItemHash      string        `json:"item_hash"`
	ItemJSON      string        `json:"item_json"`
	Count         int           `json:"count"`
	StartingPrice int64         `json:"starting_price"`
	BuyoutPrice   int64         `json:"buyout_price"`
	BidIncrement  int64         `json:"bid_increment"`
	CreatedAt     time.Time     `json:"created_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
	Status        ListingStatus `json:"status"`
	HighestBidder string        `json:"highest_bidder"`
	HighestBid    int64         `json:"highest_bid"`
	Version       int64         `json:"version"`
}

// WithStatus returns a copy of the listing with the given status and version.
func (l AuctionListing) WithStatus(status ListingStatus, version int64) AuctionListing {
	l.Status = status
	l.Version = version
	return l
}
