package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"economy-ledger/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteLedger implements Ledger on a local SQLite database. Useful when the
// snapshot-file model outgrows itself: writes touch only the affected row
// instead of rewriting the whole state, and I/O errors propagate to the
// caller instead of being swallowed.
type SQLiteLedger struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteLedger opens (and if needed creates) the ledger database at dbPath.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createLedgerTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteLedger] Initialized with database: %s", dbPath)
	return &SQLiteLedger{db: db}, nil
}

func createLedgerTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS shop_offers (
		offer_id TEXT PRIMARY KEY,
		shop_id TEXT NOT NULL,
		registry_id TEXT NOT NULL,
		item_hash TEXT NOT NULL DEFAULT '',
		item_json TEXT NOT NULL DEFAULT '',
		count INTEGER NOT NULL DEFAULT 0,
		price INTEGER NOT NULL DEFAULT 0,
		stock INTEGER NOT NULL DEFAULT 0,
		infinite_stock INTEGER NOT NULL DEFAULT 0,
		buy_enabled INTEGER NOT NULL DEFAULT 0,
		sell_enabled INTEGER NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_offers_shop ON shop_offers(shop_id);

	CREATE TABLE IF NOT EXISTS auction_listings (
		listing_id TEXT PRIMARY KEY,
		seller_account TEXT NOT NULL,
		registry_id TEXT NOT NULL,
		item_hash TEXT NOT NULL DEFAULT '',
		item_json TEXT NOT NULL DEFAULT '',
		count INTEGER NOT NULL DEFAULT 0,
		starting_price INTEGER NOT NULL DEFAULT 0,
		buyout_price INTEGER NOT NULL DEFAULT 0,
		bid_increment INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT 0,
		expires_at INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		highest_bidder TEXT NOT NULL DEFAULT '',
		highest_bid INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_listings_status_expiry ON auction_listings(status, expires_at);
	CREATE INDEX IF NOT EXISTS idx_listings_seller ON auction_listings(seller_account);

	CREATE TABLE IF NOT EXISTS deliveries (
		delivery_id TEXT PRIMARY KEY,
		owner_account TEXT NOT NULL,
		listing_id TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		item_hash TEXT NOT NULL DEFAULT '',
		item_json TEXT NOT NULL DEFAULT '',
		count INTEGER NOT NULL DEFAULT 0,
		currency_id TEXT NOT NULL DEFAULT '',
		amount INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0,
		claimed_at INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_deliveries_owner_status ON deliveries(owner_account, status);
	`
	_, err := db.Exec(query)
	return err
}

// Timestamps are stored as unix milliseconds; zero means unset.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// CreateOffer inserts or overwrites an offer by its ID.
func (r *SQLiteLedger) CreateOffer(ctx context.Context, offer model.ShopOffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO shop_offers (offer_id, shop_id, registry_id, item_hash, item_json,
			count, price, stock, infinite_stock, buy_enabled, sell_enabled, category, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(offer_id) DO UPDATE SET
			shop_id = excluded.shop_id,
			registry_id = excluded.registry_id,
			item_hash = excluded.item_hash,
			item_json = excluded.item_json,
			count = excluded.count,
			price = excluded.price,
			stock = excluded.stock,
			infinite_stock = excluded.infinite_stock,
			buy_enabled = excluded.buy_enabled,
			sell_enabled = excluded.sell_enabled,
			category = excluded.category,
			version = excluded.version`

	_, err := r.db.ExecContext(ctx, query,
		offer.OfferID, offer.ShopID, offer.RegistryID, offer.ItemHash, offer.ItemJSON,
		offer.Count, offer.Price, offer.Stock, offer.InfiniteStock, offer.BuyEnabled,
		offer.SellEnabled, offer.Category, offer.Version)
	if err != nil {
		return fmt.Errorf("failed to upsert offer: %w", err)
	}
	return nil
}

// ClearOffers removes every offer belonging to the shop.
func (r *SQLiteLedger) ClearOffers(ctx context.Context, shopID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx, `DELETE FROM shop_offers WHERE shop_id = ?`, shopID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear offers: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}

const offerColumns = `offer_id, shop_id, registry_id, item_hash, item_json,
	count, price, stock, infinite_stock, buy_enabled, sell_enabled, category, version`

func scanOffer(row interface{ Scan(...interface{}) error }) (model.ShopOffer, error) {
	var o model.ShopOffer
	err := row.Scan(&o.OfferID, &o.ShopID, &o.RegistryID, &o.ItemHash, &o.ItemJSON,
		&o.Count, &o.Price, &o.Stock, &o.InfiniteStock, &o.BuyEnabled,
		&o.SellEnabled, &o.Category, &o.Version)
	return o, err
}

// GetOffer returns the offer, or nil if absent.
func (r *SQLiteLedger) GetOffer(ctx context.Context, offerID string) (*model.ShopOffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+offerColumns+` FROM shop_offers WHERE offer_id = ?`, offerID)
	offer, err := scanOffer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return &offer, nil
}

// HasOffer reports whether any offer matches shopID and registryID exactly;
// a blank category matches any category.
func (r *SQLiteLedger) HasOffer(ctx context.Context, shopID, registryID, category string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT EXISTS(
		SELECT 1 FROM shop_offers
		WHERE shop_id = ? AND registry_id = ? AND (? = '' OR category = ?))`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, shopID, registryID, category, category).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check offer: %w", err)
	}
	return exists, nil
}

// ListOffers returns matching offers sorted ascending by registry ID.
func (r *SQLiteLedger) ListOffers(ctx context.Context, f OfferFilter) ([]model.ShopOffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	offset, limit := f.Offset, f.Limit
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	query := `
		SELECT ` + offerColumns + ` FROM shop_offers
		WHERE shop_id = ?
		  AND (? = '' OR category = ?)
		  AND (? = '' OR LOWER(registry_id) LIKE '%' || LOWER(?) || '%'
		            OR LOWER(item_json) LIKE '%' || LOWER(?) || '%')
		ORDER BY registry_id, offer_id
		LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query,
		f.ShopID, f.Category, f.Category, f.Query, f.Query, f.Query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	defer rows.Close()

	offers := make([]model.ShopOffer, 0)
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}

// UpdateStock is the compare-and-swap primitive for stock: a single UPDATE
// guarded by the version column.
func (r *SQLiteLedger) UpdateStock(ctx context.Context, offerID string, newStock, expectedVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx,
		`UPDATE shop_offers SET stock = ?, version = version + 1 WHERE offer_id = ? AND version = ?`,
		newStock, offerID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("failed to update stock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CreateListing inserts or overwrites a listing by its ID.
func (r *SQLiteLedger) CreateListing(ctx context.Context, listing model.AuctionListing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO auction_listings (listing_id, seller_account, registry_id, item_hash,
			item_json, count, starting_price, buyout_price, bid_increment, created_at,
			expires_at, status, highest_bidder, highest_bid, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(listing_id) DO UPDATE SET
			seller_account = excluded.seller_account,
			registry_id = excluded.registry_id,
			item_hash = excluded.item_hash,
			item_json = excluded.item_json,
			count = excluded.count,
			starting_price = excluded.starting_price,
			buyout_price = excluded.buyout_price,
			bid_increment = excluded.bid_increment,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			status = excluded.status,
			highest_bidder = excluded.highest_bidder,
			highest_bid = excluded.highest_bid,
			version = excluded.version`

	_, err := r.db.ExecContext(ctx, query,
		listing.ListingID, listing.SellerAccount, listing.RegistryID, listing.ItemHash,
		listing.ItemJSON, listing.Count, listing.StartingPrice, listing.BuyoutPrice,
		listing.BidIncrement, toMillis(listing.CreatedAt), toMillis(listing.ExpiresAt),
		string(listing.Status), listing.HighestBidder, listing.HighestBid, listing.Version)
	if err != nil {
		return fmt.Errorf("failed to upsert listing: %w", err)
	}
	return nil
}

const listingColumns = `listing_id, seller_account, registry_id, item_hash, item_json,
	count, starting_price, buyout_price, bid_increment, created_at, expires_at,
	status, highest_bidder, highest_bid, version`

func scanListing(row interface{ Scan(...interface{}) error }) (model.AuctionListing, error) {
	var l model.AuctionListing
	var createdAt, expiresAt int64
	var status string
	err := row.Scan(&l.ListingID, &l.SellerAccount, &l.RegistryID, &l.ItemHash, &l.ItemJSON,
		&l.Count, &l.StartingPrice, &l.BuyoutPrice, &l.BidIncrement, &createdAt, &expiresAt,
		&status, &l.HighestBidder, &l.HighestBid, &l.Version)
	if err != nil {
		return l, err
	}
	l.CreatedAt = fromMillis(createdAt)
	l.ExpiresAt = fromMillis(expiresAt)
	l.Status = model.ListingStatus(status)
	return l, nil
}

// GetListing returns the listing, or nil if absent.
func (r *SQLiteLedger) GetListing(ctx context.Context, listingID string) (*model.AuctionListing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM auction_listings WHERE listing_id = ?`, listingID)
	listing, err := scanListing(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

// UpdateListing replaces all fields of the stored listing when the version
// matches; the stored version becomes expectedVersion+1.
func (r *SQLiteLedger) UpdateListing(ctx context.Context, updated model.AuctionListing, expectedVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE auction_listings SET
			seller_account = ?, registry_id = ?, item_hash = ?, item_json = ?,
			count = ?, starting_price = ?, buyout_price = ?, bid_increment = ?,
			created_at = ?, expires_at = ?, status = ?, highest_bidder = ?,
			highest_bid = ?, version = ?
		WHERE listing_id = ? AND version = ?`

	result, err := r.db.ExecContext(ctx, query,
		updated.SellerAccount, updated.RegistryID, updated.ItemHash, updated.ItemJSON,
		updated.Count, updated.StartingPrice, updated.BuyoutPrice, updated.BidIncrement,
		toMillis(updated.CreatedAt), toMillis(updated.ExpiresAt), string(updated.Status),
		updated.HighestBidder, updated.HighestBid, expectedVersion+1,
		updated.ListingID, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("failed to update listing: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpdateStatus sets the listing status when the version matches; a stale
// version or missing listing is silently ignored.
func (r *SQLiteLedger) UpdateStatus(ctx context.Context, listingID string, status model.ListingStatus, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx,
		`UPDATE auction_listings SET status = ?, version = version + 1 WHERE listing_id = ? AND version = ?`,
		string(status), listingID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

// CountOpenListings returns how many OPEN listings the seller has.
func (r *SQLiteLedger) CountOpenListings(ctx context.Context, sellerAccount string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM auction_listings WHERE status = ? AND seller_account = ?`,
		string(model.ListingOpen), sellerAccount).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count open listings: %w", err)
	}
	return count, nil
}

// ListListings returns matching listings sorted ascending by expiry.
func (r *SQLiteLedger) ListListings(ctx context.Context, f ListingFilter) ([]model.AuctionListing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	offset, limit := f.Offset, f.Limit
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	query := `
		SELECT ` + listingColumns + ` FROM auction_listings
		WHERE status = ?
		  AND (? = '' OR LOWER(registry_id) LIKE '%' || LOWER(?) || '%'
		            OR LOWER(item_hash) LIKE '%' || LOWER(?) || '%')
		ORDER BY expires_at, listing_id
		LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query,
		string(f.Status), f.Query, f.Query, f.Query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// ListExpired returns up to limit OPEN listings due at or before now.
func (r *SQLiteLedger) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.AuctionListing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit < 0 {
		limit = 0
	}

	query := `
		SELECT ` + listingColumns + ` FROM auction_listings
		WHERE status = ? AND expires_at <= ?
		ORDER BY expires_at, listing_id
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, string(model.ListingOpen), toMillis(now), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired listings: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

func collectListings(rows *sql.Rows) ([]model.AuctionListing, error) {
	listings := make([]model.AuctionListing, 0)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, listing)
	}
	return listings, rows.Err()
}

// InsertDelivery inserts or overwrites a delivery by its ID.
func (r *SQLiteLedger) InsertDelivery(ctx context.Context, delivery model.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO deliveries (delivery_id, owner_account, listing_id, type, item_hash,
			item_json, count, currency_id, amount, status, created_at, updated_at, claimed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(delivery_id) DO UPDATE SET
			owner_account = excluded.owner_account,
			listing_id = excluded.listing_id,
			type = excluded.type,
			item_hash = excluded.item_hash,
			item_json = excluded.item_json,
			count = excluded.count,
			currency_id = excluded.currency_id,
			amount = excluded.amount,
			status = excluded.status,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			claimed_at = excluded.claimed_at`

	_, err := r.db.ExecContext(ctx, query,
		delivery.DeliveryID, delivery.OwnerAccount, delivery.ListingID, delivery.Type,
		delivery.ItemHash, delivery.ItemJSON, delivery.Count, delivery.CurrencyID,
		delivery.Amount, string(delivery.Status), toMillis(delivery.CreatedAt),
		toMillis(delivery.UpdatedAt), toMillis(delivery.ClaimedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert delivery: %w", err)
	}
	return nil
}

const deliveryColumns = `delivery_id, owner_account, listing_id, type, item_hash,
	item_json, count, currency_id, amount, status, created_at, updated_at, claimed_at`

func scanDelivery(row interface{ Scan(...interface{}) error }) (model.Delivery, error) {
	var d model.Delivery
	var createdAt, updatedAt, claimedAt int64
	var status string
	err := row.Scan(&d.DeliveryID, &d.OwnerAccount, &d.ListingID, &d.Type, &d.ItemHash,
		&d.ItemJSON, &d.Count, &d.CurrencyID, &d.Amount, &status, &createdAt, &updatedAt, &claimedAt)
	if err != nil {
		return d, err
	}
	d.Status = model.DeliveryStatus(status)
	d.CreatedAt = fromMillis(createdAt)
	d.UpdatedAt = fromMillis(updatedAt)
	d.ClaimedAt = fromMillis(claimedAt)
	return d, nil
}

// GetDelivery returns the delivery, or nil if absent.
func (r *SQLiteLedger) GetDelivery(ctx context.Context, deliveryID string) (*model.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries WHERE delivery_id = ?`, deliveryID)
	delivery, err := scanDelivery(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}
	return &delivery, nil
}

// ListPendingDeliveries returns up to limit PENDING deliveries for the
// owner, oldest first.
func (r *SQLiteLedger) ListPendingDeliveries(ctx context.Context, ownerAccount string, limit int) ([]model.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit < 0 {
		limit = 0
	}

	query := `
		SELECT ` + deliveryColumns + ` FROM deliveries
		WHERE owner_account = ? AND status = ?
		ORDER BY created_at, delivery_id
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, ownerAccount, string(model.DeliveryPending), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := make([]model.Delivery, 0)
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, delivery)
	}
	return deliveries, rows.Err()
}

// MarkDeliveryClaimed flips a PENDING delivery to CLAIMED; the status guard
// in the WHERE clause makes duplicate claims a no-op.
func (r *SQLiteLedger) MarkDeliveryClaimed(ctx context.Context, deliveryID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := toMillis(time.Now().UTC())
	result, err := r.db.ExecContext(ctx,
		`UPDATE deliveries SET status = ?, claimed_at = ?, updated_at = ? WHERE delivery_id = ? AND status = ?`,
		string(model.DeliveryClaimed), now, now, deliveryID, string(model.DeliveryPending))
	if err != nil {
		return false, fmt.Errorf("failed to mark delivery claimed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpdateDeliveryAttempt refreshes the delivery's last-attempt timestamp.
func (r *SQLiteLedger) UpdateDeliveryAttempt(ctx context.Context, deliveryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx,
		`UPDATE deliveries SET updated_at = ? WHERE delivery_id = ?`,
		toMillis(time.Now().UTC()), deliveryID)
	if err != nil {
		return fmt.Errorf("failed to update delivery attempt: %w", err)
	}
	return nil
}

// Stats returns row counts and the approximate database size.
func (r *SQLiteLedger) Stats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]interface{})
	for name, table := range map[string]string{
		"offers":     "shop_offers",
		"listings":   "auction_listings",
		"deliveries": "deliveries",
	} {
		var count int64
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil {
			return nil, err
		}
		stats[name] = count
	}

	var pageCount, pageSize int64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteLedger) Close() error {
	return r.db.Close()
}

// Ensure SQLiteLedger implements Ledger
var _ Ledger = (*SQLiteLedger)(nil)
