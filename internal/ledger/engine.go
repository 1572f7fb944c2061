package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"artifactlive.org/internal/ids"
	"artifactlive.org/internal/obs"
)

const (
	maxDescriptionLen = 255
	defaultPageSize   = 100
	maxPageSize       = 1000
)

// maxAmount is the first value that no longer fits numeric(14,2).
var maxAmount = decimal.New(1, 12)

type postConfig struct {
	transactionID string
	reverses      string
	kind          string
}

// PostOption customises a single PostTransaction call.
type PostOption func(*postConfig)

// WithTransactionID posts under a caller-chosen transaction id.
func WithTransactionID(id string) PostOption {
	return func(c *postConfig) { c.transactionID = strings.TrimSpace(id) }
}

// WithKind labels the posting in metrics and logs (e.g. "sale").
func WithKind(kind string) PostOption {
	return func(c *postConfig) { c.kind = kind }
}

func reversing(transactionID string) PostOption {
	return func(c *postConfig) {
		c.reverses = transactionID
		c.kind = "reversal"
	}
}

// PostTransaction validates lines as one balanced transaction and appends
// them atomically. It returns the transaction id used.
func (s *Service) PostTransaction(ctx context.Context, owner string, lines []Line, opts ...PostOption) (string, error) {
	cfg := postConfig{kind: "manual"}
	for _, opt := range opts {
		opt(&cfg)
	}
	txID, err := s.post(ctx, owner, lines, cfg)
	if err != nil {
		obs.RecordPosting(cfg.kind, string(KindOf(err)), 0)
		s.log.WarnContext(ctx, "posting rejected", "owner", owner, "kind", cfg.kind, "error", err.Error())
		return "", err
	}
	obs.RecordPosting(cfg.kind, "ok", len(lines))
	s.log.InfoContext(ctx, "transaction posted", "owner", owner, "kind", cfg.kind,
		"transaction_id", txID, "entries", len(lines))
	return txID, nil
}

func (s *Service) post(ctx context.Context, owner string, lines []Line, cfg postConfig) (string, error) {
	if err := checkOwner(owner); err != nil {
		return "", err
	}
	if err := ValidateLines(lines); err != nil {
		return "", err
	}

	txID := cfg.transactionID
	if txID == "" {
		txID = ids.NewTransaction()
	} else if !ids.ValidTransaction(txID) {
		return "", invalid("transaction id %q is not a uuid", txID)
	}

	postedAt := s.now()
	batch := Batch{
		TransactionID: txID,
		Owner:         owner,
		Reverses:      cfg.reverses,
		Entries:       make([]Entry, 0, len(lines)),
	}
	for _, l := range lines {
		batch.Entries = append(batch.Entries, Entry{
			ID:            ids.NewAt(postedAt),
			TransactionID: txID,
			Owner:         owner,
			AccountID:     strings.TrimSpace(l.AccountID),
			PostedAt:      postedAt,
			Debit:         l.Debit,
			Credit:        l.Credit,
			Description:   strings.TrimSpace(l.Description),
			Reference:     l.Reference,
		})
	}
	if err := s.store.AppendBatch(ctx, batch); err != nil {
		return "", fmt.Errorf("post transaction %s: %w", txID, err)
	}
	return txID, nil
}

// ValidateLines checks the shape of a transaction and its balancing
// invariant without touching storage.
func ValidateLines(lines []Line) error {
	if len(lines) < 2 {
		return invalid("a transaction needs at least 2 entries, got %d", len(lines))
	}
	debits, credits := decimal.Zero, decimal.Zero
	for i, l := range lines {
		if strings.TrimSpace(l.AccountID) == "" {
			return invalid("entry %d: account_id is required", i)
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return invalid("entry %d: debit and credit must be >= 0", i)
		}
		if l.Debit.IsZero() && l.Credit.IsZero() {
			return invalid("entry %d: debit or credit must be non-zero", i)
		}
		if !isCents(l.Debit) || !isCents(l.Credit) {
			return invalid("entry %d: amounts must have at most 2 decimal places", i)
		}
		if l.Debit.GreaterThanOrEqual(maxAmount) || l.Credit.GreaterThanOrEqual(maxAmount) {
			return invalid("entry %d: amounts must be below %s", i, maxAmount.String())
		}
		if len(l.Description) > maxDescriptionLen {
			return invalid("entry %d: description must be <= %d characters", i, maxDescriptionLen)
		}
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}
	if !WithinTolerance(debits, credits) {
		return fmt.Errorf("%w: debits (%s) != credits (%s)", ErrUnbalanced, debits.StringFixed(2), credits.StringFixed(2))
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// Entries returns a page of the owner's entries newest first and the total
// number of matches.
func (s *Service) Entries(ctx context.Context, owner string, f EntryFilter, limit, offset int) ([]Entry, int, error) {
	if err := checkOwner(owner); err != nil {
		return nil, 0, err
	}
	if offset < 0 {
		return nil, 0, invalid("offset must be >= 0")
	}
	limit = PageLimit(limit)
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, 0, invalid("date range end precedes start")
	}
	f.ReferenceType = strings.ToUpper(strings.TrimSpace(f.ReferenceType))
	entries, total, err := s.store.Entries(ctx, owner, f, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	return entries, total, nil
}

// PageLimit applies the default and maximum page size to a requested limit.
func PageLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

// ReverseTransaction posts a new transaction that cancels transactionID entry
// by entry. A transaction can be reversed once.
func (s *Service) ReverseTransaction(ctx context.Context, owner, transactionID string) (string, error) {
	if err := checkOwner(owner); err != nil {
		return "", err
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return "", invalid("transaction id is required")
	}
	original, err := s.store.TransactionEntries(ctx, transactionID)
	if err != nil {
		return "", fmt.Errorf("load transaction %s: %w", transactionID, err)
	}
	if len(original) == 0 {
		return "", fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
	}
	for _, e := range original {
		if e.Owner != owner {
			return "", fmt.Errorf("transaction %s: %w", transactionID, ErrAuthorization)
		}
	}

	lines := make([]Line, 0, len(original))
	for _, e := range original {
		desc := "REVERSAL"
		if e.Description != "" {
			desc = "REVERSAL: " + e.Description
		}
		desc = truncate(desc, maxDescriptionLen)
		lines = append(lines, Line{
			AccountID:   e.AccountID,
			Debit:       e.Credit,
			Credit:      e.Debit,
			Description: desc,
			Reference:   Reference{Type: RefReversal, ID: e.ID},
		})
	}
	newID, err := s.PostTransaction(ctx, owner, lines, reversing(transactionID))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", fmt.Errorf("reverse %s: an account of the original transaction is no longer active: %w", transactionID, err)
		}
		return "", err
	}
	return newID, nil
}

// Balances returns raw debit/credit totals per account for reporting.
func (s *Service) Balances(ctx context.Context, owner string) ([]AccountBalance, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	res, err := s.store.Balances(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	return res, nil
}
