package dto

import "github.com/detomata-com/kamclient/internal/models"

type MagicLinkRequest struct {
	Email string `json:"email"`
}

type VerifyTokenRequest struct {
	Token string `json:"token"`
}

type DeviceRegistrationRequest struct {
	Email      string            `json:"email"`
	PublicKey  string            `json:"public_key"`
	DeviceInfo models.DeviceInfo `json:"device_info"`
}

type PairingRequest struct {
	PublicKey  string            `json:"public_key"`
	DeviceInfo models.DeviceInfo `json:"device_info"`
}

type PairingCompleteRequest struct {
	Code string `json:"code"`
}

type CapturePurchaseRequest struct {
	Purchase   PurchaseBody `json:"purchase"`
	NewBalance *int64       `json:"new_balance"`
}

type PurchaseBody struct {
	PurchaseID    string `json:"purchase_id"`
	ItemID        string `json:"item_id"`
	Quantity      int    `json:"quantity"`
	Cost          int64  `json:"cost"`
	Timestamp     int64  `json:"timestamp"`
	Signature     string `json:"signature"`
	DeviceAddress string `json:"device_address"`
}

type ClaimPurchasesRequest struct {
	PurchaseIDs []string `json:"purchase_ids"`
	DeviceID    string   `json:"device_id"`
	AccountID   string   `json:"account_id,omitempty"`
}

type VerifySignatureRequest struct {
	AccountID  string `json:"account_id"`
	ItemID     string `json:"item_id"`
	Cost       int64  `json:"cost"`
	Timestamp  int64  `json:"timestamp"`
	PurchaseID string `json:"purchase_id"`
	Signature  string `json:"signature"`
	PublicKey  string `json:"public_key"`
}
