package models

import "time"

// PurchaseRecord is one entry in an account's append-only purchase ledger.
// Records are created unclaimed and transition to claimed exactly once; they
// are never deleted.
type PurchaseRecord struct {
	PurchaseID      string     `json:"purchase_id"`
	ItemID          string     `json:"item_id"`
	Quantity        int        `json:"quantity"`
	Cost            int64      `json:"cost"`
	PurchasedAt     time.Time  `json:"purchased_at"`
	Signature       string     `json:"signature"`
	DeviceAddress   string     `json:"device_address"`
	Claimed         bool       `json:"claimed"`
	ClaimedByDevice string     `json:"claimed_by_device,omitempty"`
	ClaimedAt       *time.Time `json:"claimed_at,omitempty"`
}

// ItemPack is a catalog entry, keyed by display name.
type ItemPack struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Items       []string `json:"items"`
}

// PendingPurchase is an unclaimed record expanded with catalog metadata for
// the client. PackFound is false when the item id matched nothing in the
// catalog; the record is still returned so a device holding a receipt never
// loses entitlement visibility.
type PendingPurchase struct {
	PurchaseRecord
	PackName        string   `json:"pack_name"`
	PackDescription string   `json:"pack_description"`
	PackImage       string   `json:"pack_image"`
	Items           []string `json:"items"`
	PackFound       bool     `json:"pack_found"`
}
