package services

import (
	"context"
	"time"

	"github.com/detomata-com/kamclient/internal/models"
)

// Store interfaces consumed by the services. The pgx repositories implement
// them in production; tests substitute in-memory fakes, which keeps the
// single-use and balance-conflict semantics checkable without a database.

type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByAccountID(ctx context.Context, accountID string) (*models.Account, error)
	ResolveOrCreate(ctx context.Context, email string) (*models.Account, error)
	SetEmailValidated(ctx context.Context, email string) error
	UpsertDevice(ctx context.Context, accountID string, d models.Device) (bool, error)
	ListDevices(ctx context.Context, accountID string) ([]models.Device, error)
	HasDevice(ctx context.Context, accountID, address string) (bool, error)
}

type TokenStore interface {
	Create(ctx context.Context, t *models.Token, ttl time.Duration) error
	Get(ctx context.Context, token string) (*models.Token, error)
	Consume(ctx context.Context, token string) (*models.Token, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type PurchaseStore interface {
	Apply(ctx context.Context, accountID string, rec *models.PurchaseRecord, newBalance int64) error
	ListPending(ctx context.Context, accountID string) ([]models.PendingPurchase, error)
	Claim(ctx context.Context, accountID string, purchaseIDs []string, deviceID string) (int64, error)
}

// Mailer delivers the verification links. Delivery is fire-and-forget from
// the token ledger's perspective: a failed send never rolls back issuance.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}
