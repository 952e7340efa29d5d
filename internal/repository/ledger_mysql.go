package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"economy-ledger/internal/model"
)

// MySQLLedger implements Ledger on MySQL, for deployments where the ledger
// is shared between several hosts. Row scans and timestamp handling are the
// same as the SQLite backend; only the SQL dialect differs.
type MySQLLedger struct {
	db *sql.DB
}

// NewMySQLLedger creates a MySQL-backed ledger on an existing connection
// pool and ensures the schema exists.
func NewMySQLLedger(db *sql.DB) (*MySQLLedger, error) {
	if err := createMySQLLedgerTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	log.Printf("[MySQLLedger] Initialized")
	return &MySQLLedger{db: db}, nil
}

func createMySQLLedgerTables(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS shop_offers (
			offer_id VARCHAR(64) PRIMARY KEY,
			shop_id VARCHAR(64) NOT NULL,
			registry_id VARCHAR(255) NOT NULL,
			item_hash VARCHAR(128) NOT NULL DEFAULT '',
			item_json MEDIUMTEXT,
			count INT NOT NULL DEFAULT 0,
			price BIGINT NOT NULL DEFAULT 0,
			stock BIGINT NOT NULL DEFAULT 0,
			infinite_stock BOOLEAN NOT NULL DEFAULT FALSE,
			buy_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			sell_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			category VARCHAR(64) NOT NULL DEFAULT '',
			version BIGINT NOT NULL DEFAULT 0,
			INDEX idx_offers_shop (shop_id)
		)`,
		`CREATE TABLE IF NOT EXISTS auction_listings (
			listing_id VARCHAR(64) PRIMARY KEY,
			seller_account VARCHAR(64) NOT NULL,
			registry_id VARCHAR(255) NOT NULL,
			item_hash VARCHAR(128) NOT NULL DEFAULT '',
			item_json MEDIUMTEXT,
			count INT NOT NULL DEFAULT 0,
			starting_price BIGINT NOT NULL DEFAULT 0,
			buyout_price BIGINT NOT NULL DEFAULT 0,
			bid_increment BIGINT NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL DEFAULT 0,
			expires_at BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(16) NOT NULL,
			highest_bidder VARCHAR(64) NOT NULL DEFAULT '',
			highest_bid BIGINT NOT NULL DEFAULT 0,
			version BIGINT NOT NULL DEFAULT 0,
			INDEX idx_listings_status_expiry (status, expires_at),
			INDEX idx_listings_seller (seller_account)
		)`,
		`CREATE TABLE IF NOT EXISTS deliveries (
			delivery_id VARCHAR(64) PRIMARY KEY,
			owner_account VARCHAR(64) NOT NULL,
			listing_id VARCHAR(64) NOT NULL DEFAULT '',
			type VARCHAR(32) NOT NULL DEFAULT '',
			item_hash VARCHAR(128) NOT NULL DEFAULT '',
			item_json MEDIUMTEXT,
			count INT NOT NULL DEFAULT 0,
			currency_id VARCHAR(64) NOT NULL DEFAULT '',
			amount BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(16) NOT NULL,
			created_at BIGINT NOT NULL DEFAULT 0,
			updated_at BIGINT NOT NULL DEFAULT 0,
			claimed_at BIGINT NOT NULL DEFAULT 0,
			INDEX idx_deliveries_owner_status (owner_account, status)
		)`,
	}
	for _, ddl := range tables {
		if _, err := db.Exec(ddl); err != nil {
			return err
		}
	}
	return nil
}

// CreateOffer inserts or overwrites an offer by its ID.
func (r *MySQLLedger) CreateOffer(ctx context.Context, offer model.ShopOffer) error {
	query := `
		INSERT INTO shop_offers (offer_id, shop_id, registry_id, item_hash, item_json,
			count, price, stock, infinite_stock, buy_enabled, sell_enabled, category, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			shop_id = VALUES(shop_id),
			registry_id = VALUES(registry_id),
			item_hash = VALUES(item_hash),
			item_json = VALUES(item_json),
			count = VALUES(count),
			price = VALUES(price),
			stock = VALUES(stock),
			infinite_stock = VALUES(infinite_stock),
			buy_enabled = VALUES(buy_enabled),
			sell_enabled = VALUES(sell_enabled),
			category = VALUES(category),
			version = VALUES(version)`

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
func (r *MySQLLedger) ClearOffers(ctx context.Context, shopID string) (int, error) {
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

// GetOffer returns the offer, or nil if absent.
func (r *MySQLLedger) GetOffer(ctx context.Context, offerID string) (*model.ShopOffer, error) {
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
func (r *MySQLLedger) HasOffer(ctx context.Context, shopID, registryID, category string) (bool, error) {
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
func (r *MySQLLedger) ListOffers(ctx context.Context, f OfferFilter) ([]model.ShopOffer, error) {
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
		  AND (? = '' OR LOWER(registry_id) LIKE CONCAT('%', LOWER(?), '%')
		            OR LOWER(item_json) LIKE CONCAT('%', LOWER(?), '%'))
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

// UpdateStock is the compare-and-swap primitive for stock.
func (r *MySQLLedger) UpdateStock(ctx context.Context, offerID string, newStock, expectedVersion int64) (bool, error) {
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
func (r *MySQLLedger) CreateListing(ctx context.Context, listing model.AuctionListing) error {
	query := `
		INSERT INTO auction_listings (listing_id, seller_account, registry_id, item_hash,
			item_json, count, starting_price, buyout_price, bid_increment, created_at,
			expires_at, status, highest_bidder, highest_bid, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			seller_account = VALUES(seller_account),
			registry_id = VALUES(registry_id),
			item_hash = VALUES(item_hash),
			item_json = VALUES(item_json),
			count = VALUES(count),
			starting_price = VALUES(starting_price),
			buyout_price = VALUES(buyout_price),
			bid_increment = VALUES(bid_increment),
			created_at = VALUES(created_at),
			expires_at = VALUES(expires_at),
			status = VALUES(status),
			highest_bidder = VALUES(highest_bidder),
			highest_bid = VALUES(highest_bid),
			version = VALUES(version)`

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

// GetListing returns the listing, or nil if absent.
func (r *MySQLLedger) GetListing(ctx context.Context, listingID string) (*model.AuctionListing, error) {
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
func (r *MySQLLedger) UpdateListing(ctx context.Context, updated model.AuctionListing, expectedVersion int64) (bool, error) {
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
func (r *MySQLLedger) UpdateStatus(ctx context.Context, listingID string, status model.ListingStatus, expectedVersion int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auction_listings SET status = ?, version = version + 1 WHERE listing_id = ? AND version = ?`,
		string(status), listingID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

// CountOpenListings returns how many OPEN listings the seller has.
func (r *MySQLLedger) CountOpenListings(ctx context.Context, sellerAccount string) (int, error) {
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
func (r *MySQLLedger) ListListings(ctx context.Context, f ListingFilter) ([]model.AuctionListing, error) {
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
		  AND (? = '' OR LOWER(registry_id) LIKE CONCAT('%', LOWER(?), '%')
		            OR LOWER(item_hash) LIKE CONCAT('%', LOWER(?), '%'))
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
func (r *MySQLLedger) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.AuctionListing, error) {
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

// InsertDelivery inserts or overwrites a delivery by its ID.
func (r *MySQLLedger) InsertDelivery(ctx context.Context, delivery model.Delivery) error {
	query := `
		INSERT INTO deliveries (delivery_id, owner_account, listing_id, type, item_hash,
			item_json, count, currency_id, amount, status, created_at, updated_at, claimed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			owner_account = VALUES(owner_account),
			listing_id = VALUES(listing_id),
			type = VALUES(type),
			item_hash = VALUES(item_hash),
			item_json = VALUES(item_json),
			count = VALUES(count),
			currency_id = VALUES(currency_id),
			amount = VALUES(amount),
			status = VALUES(status),
			created_at = VALUES(created_at),
			updated_at = VALUES(updated_at),
			claimed_at = VALUES(claimed_at)`

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

// GetDelivery returns the delivery, or nil if absent.
func (r *MySQLLedger) GetDelivery(ctx context.Context, deliveryID string) (*model.Delivery, error) {
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
func (r *MySQLLedger) ListPendingDeliveries(ctx context.Context, ownerAccount string, limit int) ([]model.Delivery, error) {
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
func (r *MySQLLedger) MarkDeliveryClaimed(ctx context.Context, deliveryID string) (bool, error) {
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
func (r *MySQLLedger) UpdateDeliveryAttempt(ctx context.Context, deliveryID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE deliveries SET updated_at = ? WHERE delivery_id = ?`,
		toMillis(time.Now().UTC()), deliveryID)
	if err != nil {
		return fmt.Errorf("failed to update delivery attempt: %w", err)
	}
	return nil
}

// Stats returns row counts per collection.
func (r *MySQLLedger) Stats(ctx context.Context) (map[string]interface{}, error) {
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
	return stats, nil
}

// Close closes the database connection.
func (r *MySQLLedger) Close() error {
	return r.db.Close()
}

// Ensure MySQLLedger implements Ledger
var _ Ledger = (*MySQLLedger)(nil)
