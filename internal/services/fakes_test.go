package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/detomata-com/kamclient/internal/config"
	"github.com/detomata-com/kamclient/internal/events"
	"github.com/detomata-com/kamclient/internal/models"
)

// In-memory store fakes. They mirror the semantics the pgx repositories get
// from SQL (conditional consume, conditional balance write) with a mutex, so
// the single-use and conflict guarantees are testable without a database.

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:              "http://test.local",
		LoginTokenTTL:        15 * time.Minute,
		RegistrationTokenTTL: 15 * time.Minute,
		PairingCodeTTL:       5 * time.Minute,
		JWTSecret:            "test-secret",
		JWTExpiration:        time.Hour,
	}
}

type fakeAccounts struct {
	mu      sync.Mutex
	nextID  int
	byEmail map[string]*models.Account
	devices map[string][]models.Device
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		byEmail: make(map[string]*models.Account),
		devices: make(map[string][]models.Device),
	}
}

func (f *fakeAccounts) add(accountID, email string, credits int64) *models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &models.Account{
		AccountID:  accountID,
		Email:      email,
		Playername: models.DefaultPlayername(email),
		Credits:    credits,
		CreatedAt:  time.Now(),
	}
	f.byEmail[email] = a
	return a
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byEmail[email]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) GetByAccountID(_ context.Context, accountID string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byEmail {
		if a.AccountID == accountID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, models.ErrAccountNotFound
}

func (f *fakeAccounts) ResolveOrCreate(_ context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.byEmail[email]; ok {
		cp := *a
		return &cp, nil
	}
	f.nextID++
	a := &models.Account{
		AccountID:  fmt.Sprintf("acct%012d", f.nextID),
		Email:      email,
		Playername: models.DefaultPlayername(email),
		CreatedAt:  time.Now(),
	}
	f.byEmail[email] = a
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) SetEmailValidated(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.byEmail[email]; ok {
		a.EmailValidated = true
	}
	return nil
}

func (f *fakeAccounts) UpsertDevice(_ context.Context, accountID string, d models.Device) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.devices[accountID] {
		if existing.Address == d.Address {
			f.devices[accountID][i].LastSeen = d.LastSeen
			return false, nil
		}
	}
	f.devices[accountID] = append(f.devices[accountID], d)
	return true, nil
}

func (f *fakeAccounts) ListDevices(_ context.Context, accountID string) ([]models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Device(nil), f.devices[accountID]...), nil
}

func (f *fakeAccounts) HasDevice(_ context.Context, accountID, address string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devices[accountID] {
		if d.Address == address {
			return true, nil
		}
	}
	return false, nil
}

type fakeTokens struct {
	mu     sync.Mutex
	tokens map[string]*models.Token
	now    func() time.Time
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: make(map[string]*models.Token), now: time.Now}
}

func (f *fakeTokens) Create(_ context.Context, t *models.Token, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[t.Token]; ok {
		return models.ErrTokenExists
	}
	t.CreatedAt = f.now()
	t.ExpiresAt = t.CreatedAt.Add(ttl)
	cp := *t
	f.tokens[t.Token] = &cp
	return nil
}

func (f *fakeTokens) Get(_ context.Context, token string) (*models.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return nil, models.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokens) Consume(_ context.Context, token string) (*models.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return nil, models.ErrTokenNotFound
	}
	if t.Used {
		return nil, models.ErrTokenUsed
	}
	if !f.now().Before(t.ExpiresAt) {
		return nil, models.ErrTokenExpired
	}
	t.Used = true
	cp := *t
	return &cp, nil
}

func (f *fakeTokens) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}

func (f *fakeTokens) DeleteExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, t := range f.tokens {
		if !f.now().Before(t.ExpiresAt) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

// expire rewinds a token's expiry so lazy-expiry paths can be exercised
// without sleeping.
func (f *fakeTokens) expire(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tokens[token]; ok {
		t.ExpiresAt = f.now().Add(-time.Second)
	}
}

type fakePurchases struct {
	mu       sync.Mutex
	accounts *fakeAccounts
	records  map[string][]*models.PurchaseRecord
	packs    map[string]models.ItemPack
}

func newFakePurchases(accounts *fakeAccounts) *fakePurchases {
	return &fakePurchases{
		accounts: accounts,
		records:  make(map[string][]*models.PurchaseRecord),
		packs:    make(map[string]models.ItemPack),
	}
}

func (f *fakePurchases) addPack(p models.ItemPack) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packs[strings.ToLower(p.Name)] = p
}

func (f *fakePurchases) Apply(_ context.Context, accountID string, rec *models.PurchaseRecord, newBalance int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts.mu.Lock()
	defer f.accounts.mu.Unlock()

	var acct *models.Account
	for _, a := range f.accounts.byEmail {
		if a.AccountID == accountID {
			acct = a
			break
		}
	}
	if acct == nil {
		return models.ErrAccountNotFound
	}
	if acct.Credits != newBalance+rec.Cost {
		return models.ErrBalanceConflict
	}

	acct.Credits = newBalance
	cp := *rec
	f.records[accountID] = append(f.records[accountID], &cp)
	return nil
}

func (f *fakePurchases) ListPending(_ context.Context, accountID string) ([]models.PendingPurchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var pending []models.PendingPurchase
	for _, rec := range f.records[accountID] {
		if rec.Claimed {
			continue
		}
		pp := models.PendingPurchase{PurchaseRecord: *rec}
		if pack, ok := f.packs[strings.ToLower(rec.ItemID)]; ok {
			pp.PackFound = true
			pp.PackName = pack.Name
			pp.PackDescription = pack.Description
			pp.PackImage = pack.Image
			pp.Items = pack.Items
		} else {
			pp.PackName = rec.ItemID
			pp.PackDescription = "Pack details not found"
			pp.Items = []string{}
		}
		pending = append(pending, pp)
	}
	return pending, nil
}

func (f *fakePurchases) Claim(_ context.Context, accountID string, purchaseIDs []string, deviceID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make(map[string]bool, len(purchaseIDs))
	for _, id := range purchaseIDs {
		ids[id] = true
	}

	var n int64
	now := time.Now()
	for _, rec := range f.records[accountID] {
		if ids[rec.PurchaseID] && !rec.Claimed {
			rec.Claimed = true
			rec.ClaimedByDevice = deviceID
			rec.ClaimedAt = &now
			n++
		}
	}
	return n, nil
}

type sentMail struct {
	to      string
	subject string
	html    string
	text    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, htmlBody, textBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, html: htmlBody, text: textBody})
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, _ string, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}
