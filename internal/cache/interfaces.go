package cache

import (
	"context"
	"fmt"
	"time"

	"economy-ledger/internal/repository"
)

// Cache is a read cache for ledger query results. The store serializes all
// operations, so cached entries only go stale through TTL or through the
// prefix invalidation the service performs after each mutation.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every value whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Close releases the cache's resources.
	Close() error
}

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)

// Key prefixes, one per collection, so a mutation can invalidate everything
// derived from the collection it touched.
const (
	PrefixOffers     = "ledger:offers:"
	PrefixListings   = "ledger:listings:"
	PrefixDeliveries = "ledger:deliveries:"
)

// OfferKey is the cache key for a single offer.
func OfferKey(offerID string) string {
	return PrefixOffers + "id:" + offerID
}

// OfferListKey is the cache key for one page of an offer query.
func OfferListKey(f repository.OfferFilter) string {
	return fmt.Sprintf("%slist:%s:%s:%s:%d:%d",
		PrefixOffers, f.ShopID, f.Category, f.Query, f.Offset, f.Limit)
}

// ListingKey is the cache key for a single listing.
func ListingKey(listingID string) string {
	return PrefixListings + "id:" + listingID
}

// ListingListKey is the cache key for one page of a listing query.
func ListingListKey(f repository.ListingFilter) string {
	return fmt.Sprintf("%slist:%s:%s:%d:%d",
		PrefixListings, f.Status, f.Query, f.Offset, f.Limit)
}

// PendingDeliveriesKey is the cache key for an owner's pending page.
func PendingDeliveriesKey(ownerAccount string, limit int) string {
	return fmt.Sprintf("%spending:%s:%d", PrefixDeliveries, ownerAccount, limit)
}
