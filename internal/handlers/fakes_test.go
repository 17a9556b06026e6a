package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tariffsnap/tariffsnap-golang/internal/entitlement"
	"github.com/tariffsnap/tariffsnap-golang/internal/models"
	"github.com/tariffsnap/tariffsnap-golang/internal/store"
)

// fakeProfiles is an in-memory ProfileStore mirroring the store's guarded
// mutation semantics.
type fakeProfiles struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{nextID: 1, users: make(map[int64]*models.User)}
}

func (f *fakeProfiles) add(u models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = f.nextID
	f.nextID++
	f.users[u.ID] = &u
	return &u
}

func (f *fakeProfiles) Create(_ context.Context, email, hash, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return 0, store.ErrDuplicateEmail
		}
	}
	id := f.nextID
	f.nextID++
	f.users[id] = &models.User{
		ID: id, Email: email, PasswordHash: hash, FullName: name,
		Role: models.RoleUser, PlanID: models.PlanFree,
		Credits:            models.FreeTierCredits,
		SubscriptionStatus: models.SubscriptionActive,
		CreatedAt:          time.Now(), UpdatedAt: time.Now(),
	}
	return id, nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *u
	if u.Discount != nil {
		d := *u.Discount
		copied.Discount = &d
	}
	return &copied, nil
}

func (f *fakeProfiles) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeProfiles) UpdateProfile(_ context.Context, id int64, fullName, phone, company, country *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	if fullName != nil {
		u.FullName = *fullName
	}
	if phone != nil {
		u.PhoneNumber = phone
	}
	if company != nil {
		u.CompanyName = company
	}
	if country != nil {
		u.Country = country
	}
	return nil
}

func (f *fakeProfiles) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeProfiles) ListAll(_ context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProfiles) ConsumeCredit(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	if u.Credits == models.UnlimitedCredits {
		return nil
	}
	if u.Credits == 0 {
		return store.ErrNoCredits
	}
	u.Credits--
	return nil
}

func (f *fakeProfiles) GrantVerificationCredit(_ context.Context, id int64, channel entitlement.VerificationChannel) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return false, store.ErrNotFound
	}
	updated := entitlement.GrantVerificationCredit(*u, channel)
	granted := updated != *u
	*u = updated
	return granted, nil
}

func (f *fakeProfiles) SetVerificationCode(_ context.Context, id int64, channel entitlement.VerificationChannel, code string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	if channel == entitlement.ChannelPhone {
		u.PhoneCode = &code
	} else {
		u.EmailCode = &code
	}
	u.CodeExpiry = &expiry
	return nil
}

func (f *fakeProfiles) SetPlan(_ context.Context, id int64, planID string, credits int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PlanID = planID
	u.Credits = credits
	u.SubscriptionStatus = models.SubscriptionActive
	return nil
}

func (f *fakeProfiles) CancelSubscription(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PlanID = models.PlanFree
	u.Credits = models.FreeTierCredits
	u.SubscriptionStatus = models.SubscriptionCancelled
	if u.Discount != nil {
		u.Discount.IsActive = false
	}
	return nil
}

func (f *fakeProfiles) AttachDiscount(_ context.Context, id int64, rate float64, endDate time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Discount = &models.Discount{IsActive: true, Rate: rate, EndDate: endDate}
	return nil
}

func (f *fakeProfiles) ClearDiscount(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok && u.Discount != nil {
		u.Discount.IsActive = false
	}
	return nil
}

// fakeHistory keeps records newest-first, like the store's ORDER BY.
type fakeHistory struct {
	mu      sync.Mutex
	records []models.AnalysisRecord
	nextID  int
	failing bool
}

func (f *fakeHistory) Append(_ context.Context, userID int64, result models.ClassificationResult) (*models.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errors.New("history store unavailable")
	}
	f.nextID++
	rec := models.AnalysisRecord{
		ID:        fmt.Sprintf("rec-%d", f.nextID),
		UserID:    userID,
		Result:    result,
		CreatedAt: time.Now(),
	}
	f.records = append([]models.AnalysisRecord{rec}, f.records...)
	return &rec, nil
}

func (f *fakeHistory) List(_ context.Context, userID int64) ([]models.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AnalysisRecord
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeHistory) Delete(_ context.Context, userID int64, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.records {
		if r.ID == id && r.UserID == userID {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeBilling struct {
	mu       sync.Mutex
	invoices []models.Invoice
}

func (f *fakeBilling) Append(_ context.Context, userID int64, planName, amount, status string) (*models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv := models.Invoice{
		ID:     fmt.Sprintf("inv-%d", len(f.invoices)+1),
		UserID: userID, PlanName: planName, Amount: amount, Status: status,
		CreatedAt: time.Now(),
	}
	f.invoices = append([]models.Invoice{inv}, f.invoices...)
	return &inv, nil
}

func (f *fakeBilling) List(_ context.Context, userID int64) ([]models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Invoice
	for _, inv := range f.invoices {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	return out, nil
}

type fakePlans struct {
	mu    sync.Mutex
	plans []models.Plan
}

func newFakePlans() *fakePlans {
	return &fakePlans{plans: append([]models.Plan(nil), models.DefaultPlans...)}
}

func (f *fakePlans) List(_ context.Context) ([]models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Plan(nil), f.plans...), nil
}

func (f *fakePlans) Get(_ context.Context, id string) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := models.PlanByID(f.plans, id); p != nil {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakePlans) Upsert(_ context.Context, p models.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.plans {
		if f.plans[i].ID == p.ID {
			f.plans[i] = p
			return nil
		}
	}
	f.plans = append(f.plans, p)
	return nil
}

func (f *fakePlans) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.plans {
		if f.plans[i].ID == id {
			f.plans = append(f.plans[:i], f.plans[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeContent struct {
	mu    sync.Mutex
	blobs map[string]json.RawMessage
}

func (f *fakeContent) Get(_ context.Context, key string) (*models.SiteContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.blobs[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &models.SiteContent{Key: key, Body: body}, nil
}

func (f *fakeContent) Put(_ context.Context, key string, body json.RawMessage) (*models.SiteContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blobs == nil {
		f.blobs = make(map[string]json.RawMessage)
	}
	f.blobs[key] = body
	return &models.SiteContent{Key: key, Body: body, UpdatedAt: time.Now()}, nil
}

// fakeClassifier counts calls and can fail, or block until released to
// exercise the single-flight guard.
type fakeClassifier struct {
	mu      sync.Mutex
	calls   int
	err     error
	result  models.ClassificationResult
	blockCh chan struct{}
}

func validClassification() models.ClassificationResult {
	return models.ClassificationResult{
		ProductName:            "Ceramic mug",
		Description:            "Glazed ceramic drinking mug, 350ml",
		TariffCode:             "6912.00.29",
		TariffDescription:      "Ceramic tableware, other than porcelain",
		Taxes:                  []models.Tax{{Name: "Customs duty", Rate: "12%"}, {Name: "VAT", Rate: "20%"}},
		RequiredDocuments:      []string{"Commercial invoice", "Packing list"},
		SourceMarketPrice:      "$1.20 - $2.50",
		DestinationMarketPrice: "$6 - $11",
		SupplierEmailDraft:     "Hello, we are interested in your ceramic mugs...",
		ConfidenceScore:        91,
	}
}

func (f *fakeClassifier) Classify(_ context.Context, _ []byte, _ string) (models.ClassificationResult, error) {
	f.mu.Lock()
	f.calls++
	block := f.blockCh
	err := f.err
	result := f.result
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return models.ClassificationResult{}, err
	}
	if result.TariffCode == "" {
		result = validClassification()
	}
	return result, nil
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakePayments records the last confirmed charge and can refuse.
type fakePayments struct {
	mu         sync.Mutex
	err        error
	lastAmount int
	lastPlan   string
	calls      int
}

func (f *fakePayments) ConfirmPayment(_ context.Context, _ string, planID string, amountUnits int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.lastAmount = amountUnits
	f.lastPlan = planID
	return nil
}

// fakeSender records delivered codes.
type fakeSender struct {
	mu    sync.Mutex
	codes []string
}

func (f *fakeSender) SendCode(_, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	return nil
}
