package service

import (
	"context"
	"errors"
	"slices"
	"sync"

	"adinsights/backend/internal/account/domain"
	accountrepo "adinsights/backend/internal/account/repository"
	branddomain "adinsights/backend/internal/brand/domain"
	"adinsights/backend/internal/verify"
)

// memStore backs the account, brand and membership fakes so both sides of a membership live in
// one place, as they do in Postgres.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	brands   map[string]*branddomain.Brand

	createErr func(a *domain.Account) error
	getErr    error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*domain.Account),
		brands:   make(map[string]*branddomain.Brand),
	}
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	c.Scopes = slices.Clone(a.Scopes)
	c.Brands = slices.Clone(a.Brands)
	return &c
}

func (s *memStore) addBrand(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brands[id] = &branddomain.Brand{ID: id, Name: name, Members: []string{}}
}

func (s *memStore) account(id string) *domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		return cloneAccount(a)
	}
	return nil
}

func (s *memStore) accountByEmail(email string) *domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return cloneAccount(a)
		}
	}
	return nil
}

func (s *memStore) countAccounts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

func (s *memStore) members(brandID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.brands[brandID].Members)
}

func (s *memStore) update(id string, fn func(a *domain.Account)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		fn(a)
	}
}

type memAccounts struct{ *memStore }

func (r memAccounts) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.account(id), nil
}

func (r memAccounts) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.accountByEmail(email), nil
}

func (r memAccounts) GetPendingByPasswordHash(ctx context.Context, hash string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Status == domain.StatusPending && a.PasswordHash == hash {
			return cloneAccount(a), nil
		}
	}
	return nil, nil
}

func (r memAccounts) Create(ctx context.Context, a *domain.Account) error {
	if r.createErr != nil {
		if err := r.createErr(a); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == a.Email {
			return accountrepo.ErrDuplicateEmail
		}
	}
	r.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (r memAccounts) CompleteRegistration(ctx context.Context, id, currentHash, newHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.Status != domain.StatusPending || a.PasswordHash != currentHash {
		return false, nil
	}
	a.PasswordHash = newHash
	a.Status = domain.StatusActive
	return true, nil
}

func (r memAccounts) Activate(ctx context.Context, id string) error {
	r.update(id, func(a *domain.Account) {
		if a.Status == domain.StatusPending {
			a.Status = domain.StatusActive
		}
	})
	return nil
}

func (r memAccounts) SetRefreshVersion(ctx context.Context, id, version string) error {
	r.update(id, func(a *domain.Account) { a.RefreshVersion = version })
	return nil
}

func (r memAccounts) SetPasswordHash(ctx context.Context, id, hash string) error {
	r.update(id, func(a *domain.Account) { a.PasswordHash = hash })
	return nil
}

type memBrands struct{ *memStore }

func (r memBrands) GetByName(ctx context.Context, name string) (*branddomain.Brand, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.brands {
		if b.Name == name {
			c := *b
			return &c, nil
		}
	}
	return nil, nil
}

type memMemberships struct{ *memStore }

func (r memMemberships) AddMember(ctx context.Context, brandID, accountID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, okB := r.brands[brandID]
	a, okA := r.accounts[accountID]
	if !okB || !okA {
		return false, errors.New("not found")
	}
	added := false
	if !slices.Contains(b.Members, accountID) {
		b.Members = append(b.Members, accountID)
		added = true
	}
	if !slices.Contains(a.Brands, brandID) {
		a.Brands = append(a.Brands, brandID)
		added = true
	}
	return added, nil
}

func (r memMemberships) RemoveMember(ctx context.Context, brandID, accountID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := false
	if b, ok := r.brands[brandID]; ok && slices.Contains(b.Members, accountID) {
		b.Members = slices.DeleteFunc(b.Members, func(id string) bool { return id == accountID })
		removed = true
	}
	if a, ok := r.accounts[accountID]; ok && slices.Contains(a.Brands, brandID) {
		a.Brands = slices.DeleteFunc(a.Brands, func(id string) bool { return id == brandID })
		removed = true
	}
	return removed, nil
}

// fakeGateway issues the fixed code "123456" and approves it once per identifier.
type fakeGateway struct {
	mu         sync.Mutex
	requests   []verify.CodeRequest
	codes      map[string]string
	purposes   map[string]verify.Purpose
	requestErr error
	checkErr   error
}

const testCode = "123456"

func newFakeGateway() *fakeGateway {
	return &fakeGateway{codes: make(map[string]string), purposes: make(map[string]verify.Purpose)}
}

func (g *fakeGateway) RequestCode(ctx context.Context, req verify.CodeRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.requestErr != nil {
		return g.requestErr
	}
	g.requests = append(g.requests, req)
	g.codes[req.Identifier] = testCode
	g.purposes[req.Identifier] = req.Purpose
	return nil
}

func (g *fakeGateway) CheckCode(ctx context.Context, identifier, code string, purposes ...verify.Purpose) (verify.Check, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.checkErr != nil {
		return verify.Check{}, g.checkErr
	}
	if !verify.Accepts(g.purposes[identifier], purposes) {
		return verify.Check{Valid: true}, nil
	}
	if c, ok := g.codes[identifier]; ok && c == code {
		delete(g.codes, identifier)
		return verify.Check{Valid: true, Approved: true}, nil
	}
	return verify.Check{Valid: true}, nil
}

func (g *fakeGateway) last() verify.CodeRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.requests) == 0 {
		return verify.CodeRequest{}
	}
	return g.requests[len(g.requests)-1]
}

type auditEntry struct {
	brandID, accountID, action string
}

type memAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (m *memAudit) LogEvent(ctx context.Context, brandID, accountID, action, resource, metadata string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, auditEntry{brandID: brandID, accountID: accountID, action: action})
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.action
	}
	return out
}
