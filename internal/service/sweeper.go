package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"economy-ledger/internal/model"
	"economy-ledger/internal/repository"
)

// SweeperConfig holds configuration for the expiry sweeper.
type SweeperConfig struct {
	// Interval is how often the sweep runs.
	Interval time.Duration

	// BatchSize caps how many expired listings one sweep closes.
	BatchSize int
}

// DefaultSweeperConfig returns default sweeper configuration.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:  time.Minute,
		BatchSize: 50,
	}
}

// reconcileScanLimit bounds the EXPIRED-listing scan during reconciliation.
const reconcileScanLimit = 1000

// ExpirySweeper periodically closes expired auction listings and records
// the seller's return delivery. The two writes are not atomic, so the
// return delivery gets a deterministic ID derived from the listing and a
// reconciliation pass on startup re-creates any delivery a crash between
// the two writes lost.
type ExpirySweeper struct {
	ledger    repository.Ledger
	config    SweeperConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewExpirySweeper creates a new expiry sweeper.
func NewExpirySweeper(ledger repository.Ledger, config SweeperConfig) *ExpirySweeper {
	if config.Interval == 0 {
		config.Interval = time.Minute
	}
	if config.BatchSize == 0 {
		config.BatchSize = 50
	}

	return &ExpirySweeper{
		ledger: ledger,
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start runs a reconciliation pass and then begins the sweep loop.
func (s *ExpirySweeper) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	log.Printf("[ExpirySweeper] Started - Interval: %v, BatchSize: %d",
		s.config.Interval, s.config.BatchSize)

	go func() {
		s.runReconcile()
		s.run()
	}()
}

// run is the main sweep loop.
func (s *ExpirySweeper) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runSweep()
		case <-s.stopCh:
			log.Printf("[ExpirySweeper] Stopped")
			return
		}
	}
}

func (s *ExpirySweeper) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	closed, err := s.SweepOnce(ctx)
	if err != nil {
		log.Printf("[ExpirySweeper] Error during sweep: %v", err)
		return
	}
	if closed > 0 {
		log.Printf("[ExpirySweeper] Closed %d expired listings", closed)
	}
}

func (s *ExpirySweeper) runReconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repaired, err := s.Reconcile(ctx)
	if err != nil {
		log.Printf("[ExpirySweeper] Error during reconciliation: %v", err)
		return
	}
	if repaired > 0 {
		log.Printf("[ExpirySweeper] Repaired %d missing return deliveries", repaired)
	}
}

// SweepOnce closes listings that have expired as of now and inserts their
// return deliveries. Returns how many listings it closed.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	expired, err := s.ledger.ListExpired(ctx, now, s.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to scan expired listings: %w", err)
	}

	closed := 0
	for _, listing := range expired {
		if err := s.ledger.UpdateStatus(ctx, listing.ListingID, model.ListingExpired, listing.Version); err != nil {
			return closed, fmt.Errorf("failed to close listing %s: %w", listing.ListingID, err)
		}

		// The status write is fire-and-forget; only record the return
		// delivery once the listing is actually EXPIRED.
		current, err := s.ledger.GetListing(ctx, listing.ListingID)
		if err != nil {
			return closed, err
		}
		if current == nil || current.Status != model.ListingExpired {
			continue
		}

		if err := s.ensureReturnDelivery(ctx, *current, now); err != nil {
			return closed, err
		}
		closed++
	}
	return closed, nil
}

// Reconcile re-creates the return delivery for any EXPIRED listing that has
// none, repairing a crash between the status write and the delivery write.
func (s *ExpirySweeper) Reconcile(ctx context.Context) (int, error) {
	expired, err := s.ledger.ListListings(ctx, repository.ListingFilter{
		Status: model.ListingExpired,
		Limit:  reconcileScanLimit,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan closed listings: %w", err)
	}

	repaired := 0
	now := time.Now().UTC()
	for _, listing := range expired {
		existing, err := s.ledger.GetDelivery(ctx, ReturnDeliveryID(listing.ListingID))
		if err != nil {
			return repaired, err
		}
		if existing != nil {
			continue
		}
		if err := s.ensureReturnDelivery(ctx, listing, now); err != nil {
			return repaired, err
		}
		repaired++
	}
	return repaired, nil
}

// ensureReturnDelivery inserts the seller's return delivery unless one
// already exists. Never overwrites: a claimed delivery must not revert to
// PENDING.
func (s *ExpirySweeper) ensureReturnDelivery(ctx context.Context, listing model.AuctionListing, now time.Time) error {
	id := ReturnDeliveryID(listing.ListingID)

	existing, err := s.ledger.GetDelivery(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	delivery := model.Delivery{
		DeliveryID:   id,
		OwnerAccount: listing.SellerAccount,
		ListingID:    listing.ListingID,
		Type:         "auction_return",
		ItemHash:     listing.ItemHash,
		ItemJSON:     listing.ItemJSON,
		Count:        listing.Count,
		Status:       model.DeliveryPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.ledger.InsertDelivery(ctx, delivery); err != nil {
		return fmt.Errorf("failed to insert return delivery for %s: %w", listing.ListingID, err)
	}
	return nil
}

// ReturnDeliveryID derives the deterministic return delivery ID for a
// listing, which makes re-creating it after a crash idempotent.
func ReturnDeliveryID(listingID string) string {
	return "ret-" + listingID
}

// Stop stops the sweeper.
func (s *ExpirySweeper) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow triggers an immediate sweep.
func (s *ExpirySweeper) RunNow() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	return s.SweepOnce(ctx)
}
