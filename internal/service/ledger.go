package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"economy-ledger/internal/cache"
	"economy-ledger/internal/model"
	"economy-ledger/internal/repository"
	"economy-ledger/pkg/uid"
)

// LedgerService fronts a Ledger with record preparation (ID and timestamp
// assignment) and an optional read cache. All versioned-update semantics
// pass through to the repository untouched.
type LedgerService struct {
	repo  repository.Ledger
	cache cache.Cache
	ttl   time.Duration
}

// NewLedgerService creates a new ledger service.
// Returns nil if repo is nil (required dependency). cache may be nil to
// disable read caching.
func NewLedgerService(repo repository.Ledger, c cache.Cache, ttl time.Duration) *LedgerService {
	if repo == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &LedgerService{repo: repo, cache: c, ttl: ttl}
}

// CreateOffer stores the offer, assigning an ID when it has none, and
// returns the stored value.
func (s *LedgerService) CreateOffer(ctx context.Context, offer model.ShopOffer) (model.ShopOffer, error) {
	if offer.OfferID == "" {
		offer.OfferID = uid.New()
	}
	if err := s.repo.CreateOffer(ctx, offer); err != nil {
		return model.ShopOffer{}, err
	}
	s.invalidate(ctx, cache.PrefixOffers)
	return offer, nil
}

// ClearOffers removes every offer belonging to the shop.
func (s *LedgerService) ClearOffers(ctx context.Context, shopID string) (int, error) {
	removed, err := s.repo.ClearOffers(ctx, shopID)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.invalidate(ctx, cache.PrefixOffers)
	}
	return removed, nil
}

// GetOffer returns the offer, or nil if it does not exist.
func (s *LedgerService) GetOffer(ctx context.Context, offerID string) (*model.ShopOffer, error) {
	key := cache.OfferKey(offerID)
	var cached model.ShopOffer
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	offer, err := s.repo.GetOffer(ctx, offerID)
	if err != nil || offer == nil {
		return offer, err
	}
	s.store(ctx, key, offer)
	return offer, nil
}

// HasOffer reports whether a matching offer exists.
func (s *LedgerService) HasOffer(ctx context.Context, shopID, registryID, category string) (bool, error) {
	return s.repo.HasOffer(ctx, shopID, registryID, category)
}

// ListOffers returns one page of matching offers.
func (s *LedgerService) ListOffers(ctx context.Context, f repository.OfferFilter) ([]model.ShopOffer, error) {
	key := cache.OfferListKey(f)
	var cached []model.ShopOffer
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	offers, err := s.repo.ListOffers(ctx, f)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, offers)
	return offers, nil
}

// UpdateStock applies the stock compare-and-swap; false means the offer is
// missing or the expected version was stale.
func (s *LedgerService) UpdateStock(ctx context.Context, offerID string, newStock, expectedVersion int64) (bool, error) {
	applied, err := s.repo.UpdateStock(ctx, offerID, newStock, expectedVersion)
	if err != nil {
		return false, err
	}
	if applied {
		s.invalidate(ctx, cache.PrefixOffers)
	}
	return applied, nil
}

// CreateListing stores the listing, assigning an ID and creation time when
// missing, and returns the stored value.
func (s *LedgerService) CreateListing(ctx context.Context, listing model.AuctionListing) (model.AuctionListing, error) {
	if listing.ListingID == "" {
		listing.ListingID = uid.New()
	}
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = time.Now().UTC()
	}
	if listing.Status == "" {
		listing.Status = model.ListingOpen
	}
	if err := s.repo.CreateListing(ctx, listing); err != nil {
		return model.AuctionListing{}, err
	}
	s.invalidate(ctx, cache.PrefixListings)
	return listing, nil
}

// GetListing returns the listing, or nil if it does not exist.
func (s *LedgerService) GetListing(ctx context.Context, listingID string) (*model.AuctionListing, error) {
	key := cache.ListingKey(listingID)
	var cached model.AuctionListing
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	listing, err := s.repo.GetListing(ctx, listingID)
	if err != nil || listing == nil {
		return listing, err
	}
	s.store(ctx, key, listing)
	return listing, nil
}

// UpdateListing applies the whole-record compare-and-swap.
func (s *LedgerService) UpdateListing(ctx context.Context, updated model.AuctionListing, expectedVersion int64) (bool, error) {
	applied, err := s.repo.UpdateListing(ctx, updated, expectedVersion)
	if err != nil {
		return false, err
	}
	if applied {
		s.invalidate(ctx, cache.PrefixListings)
	}
	return applied, nil
}

// UpdateStatus applies the fire-and-forget status compare-and-swap.
func (s *LedgerService) UpdateStatus(ctx context.Context, listingID string, status model.ListingStatus, expectedVersion int64) error {
	if err := s.repo.UpdateStatus(ctx, listingID, status, expectedVersion); err != nil {
		return err
	}
	s.invalidate(ctx, cache.PrefixListings)
	return nil
}

// CountOpenListings returns how many OPEN listings the seller has.
func (s *LedgerService) CountOpenListings(ctx context.Context, sellerAccount string) (int, error) {
	return s.repo.CountOpenListings(ctx, sellerAccount)
}

// ListListings returns one page of matching listings.
func (s *LedgerService) ListListings(ctx context.Context, f repository.ListingFilter) ([]model.AuctionListing, error) {
	key := cache.ListingListKey(f)
	var cached []model.AuctionListing
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	listings, err := s.repo.ListListings(ctx, f)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, listings)
	return listings, nil
}

// ListExpired returns OPEN listings due at or before now. Not cached: the
// sweeper is the only caller and it needs fresh rows.
func (s *LedgerService) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.AuctionListing, error) {
	return s.repo.ListExpired(ctx, now, limit)
}

// InsertDelivery stores the delivery, filling in an ID, timestamps and the
// PENDING status when missing, and returns the stored value.
func (s *LedgerService) InsertDelivery(ctx context.Context, delivery model.Delivery) (model.Delivery, error) {
	if delivery.DeliveryID == "" {
		delivery.DeliveryID = uid.New()
	}
	now := time.Now().UTC()
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = now
	}
	if delivery.UpdatedAt.IsZero() {
		delivery.UpdatedAt = now
	}
	if delivery.Status == "" {
		delivery.Status = model.DeliveryPending
	}
	if err := s.repo.InsertDelivery(ctx, delivery); err != nil {
		return model.Delivery{}, err
	}
	s.invalidate(ctx, cache.PrefixDeliveries)
	return delivery, nil
}

// GetDelivery returns the delivery, or nil if it does not exist.
func (s *LedgerService) GetDelivery(ctx context.Context, deliveryID string) (*model.Delivery, error) {
	return s.repo.GetDelivery(ctx, deliveryID)
}

// ListPendingDeliveries returns up to limit PENDING deliveries for the owner.
func (s *LedgerService) ListPendingDeliveries(ctx context.Context, ownerAccount string, limit int) ([]model.Delivery, error) {
	key := cache.PendingDeliveriesKey(ownerAccount, limit)
	var cached []model.Delivery
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	deliveries, err := s.repo.ListPendingDeliveries(ctx, ownerAccount, limit)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, deliveries)
	return deliveries, nil
}

// MarkDeliveryClaimed claims a PENDING delivery; false means it was missing
// or already claimed.
func (s *LedgerService) MarkDeliveryClaimed(ctx context.Context, deliveryID string) (bool, error) {
	claimed, err := s.repo.MarkDeliveryClaimed(ctx, deliveryID)
	if err != nil {
		return false, err
	}
	if claimed {
		s.invalidate(ctx, cache.PrefixDeliveries)
	}
	return claimed, nil
}

// UpdateDeliveryAttempt refreshes the delivery's last-attempt timestamp.
func (s *LedgerService) UpdateDeliveryAttempt(ctx context.Context, deliveryID string) error {
	return s.repo.UpdateDeliveryAttempt(ctx, deliveryID)
}

// Stats returns statistics about the backing store.
func (s *LedgerService) Stats(ctx context.Context) (map[string]interface{}, error) {
	return s.repo.Stats(ctx)
}

// lookup fills dest from the cache, reporting whether it hit.
func (s *LedgerService) lookup(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

// store writes value to the cache; cache failures are not the caller's
// problem, so they are only logged.
func (s *LedgerService) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		log.Printf("[LedgerService] Cache set failed for %s: %v", key, err)
	}
}

func (s *LedgerService) invalidate(ctx context.Context, prefix string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, prefix); err != nil {
		log.Printf("[LedgerService] Cache invalidation failed for %s: %v", prefix, err)
	}
}
