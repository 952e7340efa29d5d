package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"economy-ledger/internal/model"
)

const snapshotSchemaVersion = 1

// snapshot is the on-disk layout: three collections keyed by record ID.
type snapshot struct {
	SchemaVersion int                             `json:"schema_version"`
	Offers        map[string]model.ShopOffer      `json:"offers"`
	Listings      map[string]model.AuctionListing `json:"listings"`
	Deliveries    map[string]model.Delivery       `json:"deliveries"`
}

// JSONFileLedger keeps the whole ledger in memory and mirrors it to a single
// JSON document. Every operation, reads included, runs under one store-wide
// mutex; every successful mutation rewrites the full snapshot before
// returning.
//
// Durability is best-effort: a failed write is logged and swallowed, the
// in-memory state stays authoritative, and the operation still reports
// success. A crash before the next successful flush loses that mutation.
type JSONFileLedger struct {
	mu         sync.Mutex
	path       string
	offers     map[string]model.ShopOffer
	listings   map[string]model.AuctionListing
	deliveries map[string]model.Delivery

	now func() time.Time
}

// NewJSONFileLedger opens the ledger backed by the JSON document at path.
// A missing document means no prior state. An unreadable document is moved
// aside to <path>.bak and the ledger starts empty.
func NewJSONFileLedger(path string) (*JSONFileLedger, error) {
	l := &JSONFileLedger{
		path:       path,
		offers:     make(map[string]model.ShopOffer),
		listings:   make(map[string]model.AuctionListing),
		deliveries: make(map[string]model.Delivery),
		now:        time.Now,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[JSONFileLedger] No snapshot at %s, starting empty", path)
			return l, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		backup := path + ".bak"
		if renameErr := os.Rename(path, backup); renameErr == nil {
			log.Printf("[JSONFileLedger] Corrupt snapshot moved to %s, starting empty: %v", backup, err)
		} else {
			log.Printf("[JSONFileLedger] Corrupt snapshot at %s, starting empty: %v", path, err)
		}
		return l, nil
	}

	if snap.Offers != nil {
		l.offers = snap.Offers
	}
	if snap.Listings != nil {
		l.listings = snap.Listings
	}
	if snap.Deliveries != nil {
		l.deliveries = snap.Deliveries
	}

	log.Printf("[JSONFileLedger] Loaded %d offers, %d listings, %d deliveries from %s",
		len(l.offers), len(l.listings), len(l.deliveries), path)
	return l, nil
}

// flush writes the full snapshot to disk. Must be called with mu held.
// Write failures are logged and swallowed; the in-memory state is the
// source of truth until the next successful flush.
func (l *JSONFileLedger) flush() {
	snap := snapshot{
		SchemaVersion: snapshotSchemaVersion,
		Offers:        l.offers,
		Listings:      l.listings,
		Deliveries:    l.deliveries,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Printf("[JSONFileLedger] Failed to encode snapshot: %v", err)
		return
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[JSONFileLedger] Failed to create %s: %v", dir, err)
		return
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Printf("[JSONFileLedger] Failed to write snapshot: %v", err)
		return
	}
	if err := os.Rename(tmp, l.path); err != nil {
		log.Printf("[JSONFileLedger] Failed to replace snapshot: %v", err)
	}
}

// CreateOffer inserts or overwrites an offer by its ID.
func (l *JSONFileLedger) CreateOffer(ctx context.Context, offer model.ShopOffer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.offers[offer.OfferID] = offer
	l.flush()
	return nil
}

// ClearOffers removes every offer belonging to the shop.
func (l *JSONFileLedger) ClearOffers(ctx context.Context, shopID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, offer := range l.offers {
		if offer.ShopID == shopID {
			delete(l.offers, id)
			removed++
		}
	}
	if removed > 0 {
		l.flush()
	}
	return removed, nil
}

// GetOffer returns a copy of the offer, or nil if absent.
func (l *JSONFileLedger) GetOffer(ctx context.Context, offerID string) (*model.ShopOffer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	offer, ok := l.offers[offerID]
	if !ok {
		return nil, nil
	}
	return &offer, nil
}

// HasOffer reports whether any offer matches shopID and registryID exactly;
// a blank category matches any category.
func (l *JSONFileLedger) HasOffer(ctx context.Context, shopID, registryID, category string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, offer := range l.offers {
		if offer.ShopID != shopID || offer.RegistryID != registryID {
			continue
		}
		if category == "" || offer.Category == category {
			return true, nil
		}
	}
	return false, nil
}

// ListOffers returns matching offers sorted ascending by registry ID, with
// the offer ID as tiebreak so paging is stable across identical queries.
func (l *JSONFileLedger) ListOffers(ctx context.Context, f OfferFilter) ([]model.ShopOffer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	query := strings.ToLower(f.Query)
	matched := make([]model.ShopOffer, 0)
	for _, offer := range l.offers {
		if offer.ShopID != f.ShopID {
			continue
		}
		if f.Category != "" && offer.Category != f.Category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(offer.RegistryID), query) &&
			!strings.Contains(strings.ToLower(offer.ItemJSON), query) {
			continue
		}
		matched = append(matched, offer)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].RegistryID != matched[j].RegistryID {
			return matched[i].RegistryID < matched[j].RegistryID
		}
		return matched[i].OfferID < matched[j].OfferID
	})

	from, to := clampPage(f.Offset, f.Limit, len(matched))
	return matched[from:to], nil
}

// UpdateStock is the catalog's compare-and-swap primitive: it succeeds only
// when the stored version equals expectedVersion.
func (l *JSONFileLedger) UpdateStock(ctx context.Context, offerID string, newStock, expectedVersion int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	offer, ok := l.offers[offerID]
	if !ok || offer.Version != expectedVersion {
		return false, nil
	}

	l.offers[offerID] = offer.WithStock(newStock, offer.Version+1)
	l.flush()
	return true, nil
}

// CreateListing inserts or overwrites a listing by its ID.
func (l *JSONFileLedger) CreateListing(ctx context.Context, listing model.AuctionListing) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.listings[listing.ListingID] = listing
	l.flush()
	return nil
}

// GetListing returns a copy of the listing, or nil if absent.
func (l *JSONFileLedger) GetListing(ctx context.Context, listingID string) (*model.AuctionListing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	listing, ok := l.listings[listingID]
	if !ok {
		return nil, nil
	}
	return &listing, nil
}

// UpdateListing replaces the stored listing wholesale when the version
// matches. The stored version is always expectedVersion+1, whatever version
// the updated value carries.
func (l *JSONFileLedger) UpdateListing(ctx context.Context, updated model.AuctionListing, expectedVersion int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.listings[updated.ListingID]
	if !ok || current.Version != expectedVersion {
		return false, nil
	}

	updated.Version = expectedVersion + 1
	l.listings[updated.ListingID] = updated
	l.flush()
	return true, nil
}

// UpdateStatus sets the listing status when the version matches. A missing
// listing or stale version is silently ignored; callers that need to know
// whether the write landed should re-read the listing.
func (l *JSONFileLedger) UpdateStatus(ctx context.Context, listingID string, status model.ListingStatus, expectedVersion int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	listing, ok := l.listings[listingID]
	if !ok || listing.Version != expectedVersion {
		return nil
	}

	l.listings[listingID] = listing.WithStatus(status, listing.Version+1)
	l.flush()
	return nil
}

// CountOpenListings returns how many OPEN listings the seller has.
func (l *JSONFileLedger) CountOpenListings(ctx context.Context, sellerAccount string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, listing := range l.listings {
		if listing.Status == model.ListingOpen && listing.SellerAccount == sellerAccount {
			count++
		}
	}
	return count, nil
}

// ListListings returns matching listings sorted ascending by expiry, with
// the listing ID as tiebreak for stable paging.
func (l *JSONFileLedger) ListListings(ctx context.Context, f ListingFilter) ([]model.AuctionListing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	query := strings.ToLower(f.Query)
	matched := make([]model.AuctionListing, 0)
	for _, listing := range l.listings {
		if listing.Status != f.Status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(listing.RegistryID), query) &&
			!strings.Contains(strings.ToLower(listing.ItemHash), query) {
			continue
		}
		matched = append(matched, listing)
	}

	sortListingsByExpiry(matched)

	from, to := clampPage(f.Offset, f.Limit, len(matched))
	return matched[from:to], nil
}

// ListExpired returns up to limit OPEN listings due at or before now,
// soonest expiry first.
func (l *JSONFileLedger) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.AuctionListing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	matched := make([]model.AuctionListing, 0)
	for _, listing := range l.listings {
		if listing.Status == model.ListingOpen && !listing.ExpiresAt.After(now) {
			matched = append(matched, listing)
		}
	}

	sortListingsByExpiry(matched)

	if limit < 0 {
		limit = 0
	}
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// InsertDelivery inserts or overwrites a delivery by its ID.
func (l *JSONFileLedger) InsertDelivery(ctx context.Context, delivery model.Delivery) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.deliveries[delivery.DeliveryID] = delivery
	l.flush()
	return nil
}

// GetDelivery returns a copy of the delivery, or nil if absent.
func (l *JSONFileLedger) GetDelivery(ctx context.Context, deliveryID string) (*model.Delivery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delivery, ok := l.deliveries[deliveryID]
	if !ok {
		return nil, nil
	}
	return &delivery, nil
}

// ListPendingDeliveries returns up to limit PENDING deliveries for the
// owner, oldest first.
func (l *JSONFileLedger) ListPendingDeliveries(ctx context.Context, ownerAccount string, limit int) ([]model.Delivery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	matched := make([]model.Delivery, 0)
	for _, delivery := range l.deliveries {
		if delivery.OwnerAccount == ownerAccount && delivery.Status == model.DeliveryPending {
			matched = append(matched, delivery)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].DeliveryID < matched[j].DeliveryID
	})

	if limit < 0 {
		limit = 0
	}
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// MarkDeliveryClaimed flips a PENDING delivery to CLAIMED. CLAIMED is
// terminal: a second call for the same ID returns false and changes nothing.
func (l *JSONFileLedger) MarkDeliveryClaimed(ctx context.Context, deliveryID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delivery, ok := l.deliveries[deliveryID]
	if !ok || delivery.Status != model.DeliveryPending {
		return false, nil
	}

	l.deliveries[deliveryID] = delivery.Claimed(l.now().UTC())
	l.flush()
	return true, nil
}

// UpdateDeliveryAttempt refreshes the delivery's last-attempt timestamp.
// No-op if the delivery does not exist.
func (l *JSONFileLedger) UpdateDeliveryAttempt(ctx context.Context, deliveryID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delivery, ok := l.deliveries[deliveryID]
	if !ok {
		return nil
	}

	l.deliveries[deliveryID] = delivery.Touched(l.now().UTC())
	l.flush()
	return nil
}

// Stats returns collection sizes and the snapshot location.
func (l *JSONFileLedger) Stats(ctx context.Context) (map[string]interface{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := map[string]interface{}{
		"offers":     len(l.offers),
		"listings":   len(l.listings),
		"deliveries": len(l.deliveries),
		"path":       l.path,
	}
	if info, err := os.Stat(l.path); err == nil {
		stats["snapshot_bytes"] = info.Size()
	}
	return stats, nil
}

// Close is a no-op; the ledger holds no resources beyond the snapshot file.
func (l *JSONFileLedger) Close() error {
	return nil
}

// clampPage maps offset/limit onto the half-open slice [from, to) of a
// result set of the given size. Out-of-range and negative values clamp
// rather than error.
func clampPage(offset, limit, size int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	from := offset
	if from > size {
		from = size
	}
	to := from + limit
	if to > size {
		to = size
	}
	return from, to
}

func sortListingsByExpiry(listings []model.AuctionListing) {
	sort.Slice(listings, func(i, j int) bool {
		if !listings[i].ExpiresAt.Equal(listings[j].ExpiresAt) {
			return listings[i].ExpiresAt.Before(listings[j].ExpiresAt)
		}
		return listings[i].ListingID < listings[j].ListingID
	})
}

// Ensure JSONFileLedger implements Ledger
var _ Ledger = (*JSONFileLedger)(nil)
