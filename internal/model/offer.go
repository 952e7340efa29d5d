package model

// ShopOffer is a single priced, stocked entry in a shop's catalog.
// Offers are immutable values: every accepted mutation stores a fresh copy
// with Version bumped by one.
type ShopOffer struct {
	OfferID       string `json:"offer_id"`
	ShopID        string `json:"shop_id"`
	RegistryID    string `json:"registry_id"`
	ItemHash      string `json:"item_hash"`
	ItemJSON      string `json:"item_json"`
	Count         int    `json:"count"`
	Price         int64  `json:"price"`
	Stock         int64  `json:"stock"`
	InfiniteStock bool   `json:"infinite_stock"`
	BuyEnabled    bool   `json:"buy_enabled"`
	SellEnabled   bool   `json:"sell_enabled"`
	Category      string `json:"category"`
	Version       int64  `json:"version"`
}

// WithStock returns a copy of the offer with the given stock and version.
func (o ShopOffer) WithStock(stock, version int64) ShopOffer {
	o.Stock = stock
	o.Version = version
	return o
}
