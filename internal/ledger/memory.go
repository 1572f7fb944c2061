package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"artifactlive.org/internal/ids"
)

var _ Store = (*InMemory)(nil)

// InMemory implements Store with in-process concurrency safety. It backs
// tests and the API when no database is configured.
type InMemory struct {
	mu        sync.RWMutex
	accts     map[string]*Account
	entries   []Entry
	byTx      map[string][]int // transaction id -> indexes into entries
	reversals map[string]string
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		accts:     make(map[string]*Account),
		byTx:      make(map[string][]int),
		reversals: make(map[string]string),
	}
}

func (s *InMemory) InsertAccount(ctx context.Context, acc Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(acc)
}

func (s *InMemory) insertLocked(acc Account) (Account, error) {
	for _, a := range s.accts {
		if a.Owner == acc.Owner && a.IsActive && a.Name == acc.Name {
			return Account{}, ErrDuplicateName
		}
	}
	if acc.ID == "" {
		acc.ID = ids.New()
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}
	acc.IsActive = true
	stored := acc
	s.accts[acc.ID] = &stored
	return acc, nil
}

func (s *InMemory) FindAccount(ctx context.Context, owner, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accts[id]
	if !ok || acc.Owner != owner {
		return Account{}, ErrAccountNotFound
	}
	return *acc, nil
}

func (s *InMemory) ListAccounts(ctx context.Context, owner string, includeInactive bool) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Account
	for _, a := range s.accts {
		if a.Owner != owner || (!a.IsActive && !includeInactive) {
			continue
		}
		res = append(res, *a)
	}
	SortAccounts(res)
	return res, nil
}

func (s *InMemory) DeactivateAccount(ctx context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accts[id]
	if !ok || acc.Owner != owner {
		return ErrAccountNotFound
	}
	if acc.IsSystem {
		return ErrProtected
	}
	acc.IsActive = false
	return nil
}

func (s *InMemory) EnsureSystemAccount(ctx context.Context, owner string, typ AccountType, subtype, name string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accts {
		if a.Owner == owner && a.IsSystem && a.IsActive && a.Type == typ && a.Subtype == subtype {
			return *a, nil
		}
	}
	return s.insertLocked(Account{
		Owner:    owner,
		Name:     name,
		Type:     typ,
		Subtype:  subtype,
		IsSystem: true,
	})
}

func (s *InMemory) AppendBatch(ctx context.Context, b Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range b.Entries {
		acc, ok := s.accts[e.AccountID]
		if !ok || acc.Owner != b.Owner || !acc.IsActive {
			return ErrAccountNotFound
		}
	}
	if b.Reverses != "" {
		if _, done := s.reversals[b.Reverses]; done {
			return ErrAlreadyReversed
		}
		s.reversals[b.Reverses] = b.TransactionID
	}
	for _, e := range b.Entries {
		e.Owner = b.Owner
		e.TransactionID = b.TransactionID
		s.entries = append(s.entries, e)
		s.byTx[b.TransactionID] = append(s.byTx[b.TransactionID], len(s.entries)-1)
	}
	return nil
}

func (s *InMemory) Entries(ctx context.Context, owner string, f EntryFilter, limit, offset int) ([]Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []Entry
	for _, e := range s.entries {
		if e.Owner != owner || !f.matches(e) {
			continue
		}
		matched = append(matched, e)
	}
	SortEntriesNewestFirst(matched)
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

func (s *InMemory) TransactionEntries(ctx context.Context, transactionID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.byTx[transactionID]
	res := make([]Entry, 0, len(idx))
	for _, i := range idx {
		res = append(res, s.entries[i])
	}
	return res, nil
}

func (s *InMemory) Balances(ctx context.Context, owner string) ([]AccountBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := make(map[string]*AccountBalance)
	for _, a := range s.accts {
		if a.Owner != owner {
			continue
		}
		totals[a.ID] = &AccountBalance{Account: *a, Debits: decimal.Zero, Credits: decimal.Zero}
	}
	for _, e := range s.entries {
		b, ok := totals[e.AccountID]
		if !ok {
			continue
		}
		b.Debits = b.Debits.Add(e.Debit)
		b.Credits = b.Credits.Add(e.Credit)
	}
	res := make([]AccountBalance, 0, len(totals))
	for _, b := range totals {
		res = append(res, *b)
	}
	sort.SliceStable(res, func(i, j int) bool { return accountLess(res[i].Account, res[j].Account) })
	return res, nil
}

func (f EntryFilter) matches(e Entry) bool {
	if f.AccountID != "" && e.AccountID != f.AccountID {
		return false
	}
	if f.TransactionID != "" && e.TransactionID != f.TransactionID {
		return false
	}
	if f.ReferenceType != "" && e.Reference.Type != f.ReferenceType {
		return false
	}
	if !f.From.IsZero() && e.PostedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.PostedAt.Before(f.To) {
		return false
	}
	return true
}

// SortAccounts orders accounts by canonical type sequence, then name, then id.
func SortAccounts(accs []Account) {
	sort.SliceStable(accs, func(i, j int) bool { return accountLess(accs[i], accs[j]) })
}

func accountLess(a, b Account) bool {
	if ra, rb := a.Type.Rank(), b.Type.Rank(); ra != rb {
		return ra < rb
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

// SortEntriesNewestFirst orders by posting time then entry id, both descending.
func SortEntriesNewestFirst(es []Entry) {
	sort.SliceStable(es, func(i, j int) bool {
		if !es[i].PostedAt.Equal(es[j].PostedAt) {
			return es[i].PostedAt.After(es[j].PostedAt)
		}
		return es[i].ID > es[j].ID
	})
}
