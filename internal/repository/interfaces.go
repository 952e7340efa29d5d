package repository

import (
	"context"
	"time"

	"economy-ledger/internal/model"
)

// OfferFilter selects shop offers for ListOffers.
// ShopID is matched exactly; Category and Query are ignored when blank.
// Query is a case-insensitive substring match against the offer's registry
// ID or its serialized item payload.
type OfferFilter struct {
	ShopID   string
	Category string
	Query    string
	Offset   int
	Limit    int
}

// ListingFilter selects auction listings for ListListings.
// Status is matched exactly; Query, when non-blank, is a case-insensitive
// substring match against the registry ID or item hash.
type ListingFilter struct {
	Status model.ListingStatus
	Query  string
	Offset int
	Limit  int
}

// OfferCatalog defines shop offer data access methods.
type OfferCatalog interface {
	// CreateOffer inserts or overwrites an offer by its ID.
	CreateOffer(ctx context.Context, offer model.ShopOffer) error

	// ClearOffers removes every offer belonging to the shop and returns
	// how many were removed.
	ClearOffers(ctx context.Context, shopID string) (int, error)

	// GetOffer returns the offer, or nil if it does not exist.
	GetOffer(ctx context.Context, offerID string) (*model.ShopOffer, error)

	// HasOffer reports whether any offer matches shopID and registryID
	// exactly; a blank category matches any category.
	HasOffer(ctx context.Context, shopID, registryID, category string) (bool, error)

	// ListOffers returns matching offers sorted ascending by registry ID,
	// paginated by the filter's offset and limit.
	ListOffers(ctx context.Context, f OfferFilter) ([]model.ShopOffer, error)

	// UpdateStock replaces the offer's stock if its current version equals
	// expectedVersion, bumping the version by one. Returns false without
	// mutating anything when the offer is missing or the version is stale.
	UpdateStock(ctx context.Context, offerID string, newStock, expectedVersion int64) (bool, error)
}

// AuctionLedger defines auction listing data access methods.
type AuctionLedger interface {
	// CreateListing inserts or overwrites a listing by its ID.
	CreateListing(ctx context.Context, listing model.AuctionListing) error

	// GetListing returns the listing, or nil if it does not exist.
	GetListing(ctx context.Context, listingID string) (*model.AuctionListing, error)

	// UpdateListing replaces all fields of the stored listing if its current
	// version equals expectedVersion. The stored version becomes
	// expectedVersion+1 regardless of the version carried in updated.
	// Returns false without mutating anything on a missing listing or a
	// stale version.
	UpdateListing(ctx context.Context, updated model.AuctionListing, expectedVersion int64) (bool, error)

	// UpdateStatus sets the listing's status if its current version equals
	// expectedVersion, bumping the version by one. A missing listing or a
	// stale version is silently ignored.
	UpdateStatus(ctx context.Context, listingID string, status model.ListingStatus, expectedVersion int64) error

	// CountOpenListings returns how many OPEN listings the seller has.
	CountOpenListings(ctx context.Context, sellerAccount string) (int, error)

	// ListListings returns matching listings sorted ascending by expiry,
	// paginated by the filter's offset and limit.
	ListListings(ctx context.Context, f ListingFilter) ([]model.AuctionListing, error)

	// ListExpired returns up to limit OPEN listings whose expiry is at or
	// before now, sorted ascending by expiry. It performs no mutation;
	// closing expired listings is the caller's job.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.AuctionListing, error)
}

// DeliveryMailbox defines pending delivery data access methods.
type DeliveryMailbox interface {
	// InsertDelivery inserts or overwrites a delivery by its ID.
	InsertDelivery(ctx context.Context, delivery model.Delivery) error

	// GetDelivery returns the delivery, or nil if it does not exist.
	GetDelivery(ctx context.Context, deliveryID string) (*model.Delivery, error)

	// ListPendingDeliveries returns up to limit PENDING deliveries for the
	// owner, sorted ascending by creation time.
	ListPendingDeliveries(ctx context.Context, ownerAccount string, limit int) ([]model.Delivery, error)

	// MarkDeliveryClaimed flips a PENDING delivery to CLAIMED and stamps the
	// claim time. Returns false when the delivery is missing or already
	// claimed, which makes duplicate claim attempts harmless.
	MarkDeliveryClaimed(ctx context.Context, deliveryID string) (bool, error)

	// UpdateDeliveryAttempt refreshes the delivery's last-attempt timestamp
	// without touching its status. No-op if the delivery does not exist.
	UpdateDeliveryAttempt(ctx context.Context, deliveryID string) error
}

// Ledger is the full economy ledger: three independent collections behind
// one store instance.
type Ledger interface {
	OfferCatalog
	AuctionLedger
	DeliveryMailbox

	// Stats returns statistics about the backing store.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close releases the store's resources.
	Close() error
}
