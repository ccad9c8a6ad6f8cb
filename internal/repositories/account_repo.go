package repositories

import (
	"context"
	"errors"

	"github.com/detomata-com/kamclient/internal/accountid"
	"github.com/detomata-com/kamclient/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT account_id, email, playername, credits, email_validated, created_at
		FROM accounts WHERE email = $1
	`, email).Scan(&a.AccountID, &a.Email, &a.Playername, &a.Credits, &a.EmailValidated, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByAccountID(ctx context.Context, accountID string) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT account_id, email, playername, credits, email_validated, created_at
		FROM accounts WHERE account_id = $1
	`, accountID).Scan(&a.AccountID, &a.Email, &a.Playername, &a.Credits, &a.EmailValidated, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ResolveOrCreate returns the account for a normalized email, creating it on
// first contact. Identifier generation retries on collision up to the bound;
// past that the caller gets ErrIDExhausted, never a duplicate id. A concurrent
// create for the same email resolves to the winner's row via the email
// conflict clause.
func (r *AccountRepo) ResolveOrCreate(ctx context.Context, email string) (*models.Account, error) {
	acct, err := r.GetByEmail(ctx, email)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, models.ErrAccountNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < accountid.MaxAttempts; attempt++ {
		var a models.Account
		err := r.pool.QueryRow(ctx, `
			INSERT INTO accounts (account_id, email, playername)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
			RETURNING account_id, email, playername, credits, email_validated, created_at
		`, accountid.New(), email, models.DefaultPlayername(email)).Scan(
			&a.AccountID, &a.Email, &a.Playername, &a.Credits, &a.EmailValidated, &a.CreatedAt,
		)
		if err == nil {
			return &a, nil
		}
		if isUniqueViolation(err) {
			// account_id collision, draw again
			continue
		}
		return nil, err
	}
	return nil, models.ErrIDExhausted
}

func (r *AccountRepo) SetEmailValidated(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx, `UPDATE accounts SET email_validated = true WHERE email = $1`, email)
	return err
}

// UpsertDevice pairs a device with an account. A re-pair of a known address
// only refreshes last_seen; the returned flag reports whether the device row
// is new.
func (r *AccountRepo) UpsertDevice(ctx context.Context, accountID string, d models.Device) (bool, error) {
	var inserted bool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO trusted_devices (account_id, address, device_name, paired_at, last_seen)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (account_id, address) DO UPDATE SET last_seen = now()
		RETURNING (xmax = 0)
	`, accountID, d.Address, d.DeviceName).Scan(&inserted)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func (r *AccountRepo) ListDevices(ctx context.Context, accountID string) ([]models.Device, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT address, device_name, paired_at, last_seen
		FROM trusted_devices WHERE account_id = $1
		ORDER BY paired_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		var d models.Device
		if err := rows.Scan(&d.Address, &d.DeviceName, &d.PairedAt, &d.LastSeen); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// HasDevice reports whether the address is paired with the account.
// Addresses are stored normalized, so equality here is already
// case-insensitive.
func (r *AccountRepo) HasDevice(ctx context.Context, accountID, address string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM trusted_devices WHERE account_id = $1 AND address = $2)
	`, accountID, address).Scan(&exists)
	return exists, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
