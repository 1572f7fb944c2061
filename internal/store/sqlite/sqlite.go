// Package sqlite stores the ledger in a single SQLite file for single-node
// deployments and local bookkeeping.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"artifactlive.org/internal/ids"
	"artifactlive.org/internal/ledger"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements ledger.Store on SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ ledger.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema. Foreign keys are enforced and transactions take the write lock
// up front.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	connStr := "file::memory:?_foreign_keys=on&_txlock=immediate"
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		connStr = fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", path)
	}
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite has a single writer; one connection also keeps :memory: alive.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db, path: path, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file path, or MemoryPath.
func (s *Store) Path() string { return s.path }

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored timestamp %q: %w", s, err)
	}
	return t, nil
}

const accountColumns = `account_id, owner, account_name, account_type, subtype, is_system, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (ledger.Account, error) {
	var a ledger.Account
	var typ, created string
	if err := r.Scan(&a.ID, &a.Owner, &a.Name, &typ, &a.Subtype, &a.IsSystem, &a.IsActive, &created); err != nil {
		return ledger.Account{}, err
	}
	a.Type = ledger.AccountType(typ)
	t, err := parseTime(created)
	if err != nil {
		return ledger.Account{}, err
	}
	a.CreatedAt = t
	return a, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func insertAccount(ctx context.Context, db execer, acc ledger.Account) error {
	_, err := db.ExecContext(ctx, `
		insert into ledger_accounts(`+accountColumns+`)
		values (?,?,?,?,?,?,?,?)
	`, acc.ID, acc.Owner, acc.Name, string(acc.Type), acc.Subtype, acc.IsSystem, acc.IsActive, formatTime(acc.CreatedAt))
	if isUniqueViolation(err) {
		return ledger.ErrDuplicateName
	}
	return err
}

func (s *Store) InsertAccount(ctx context.Context, acc ledger.Account) (ledger.Account, error) {
	if acc.ID == "" {
		acc.ID = ids.New()
	}
	acc.IsActive = true
	acc.CreatedAt = s.now()
	if err := insertAccount(ctx, s.db, acc); err != nil {
		return ledger.Account{}, err
	}
	return acc, nil
}

func (s *Store) FindAccount(ctx context.Context, owner, id string) (ledger.Account, error) {
	acc, err := scanAccount(s.db.QueryRowContext(ctx, `
		select `+accountColumns+` from ledger_accounts where account_id=? and owner=?
	`, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return acc, err
}

func (s *Store) ListAccounts(ctx context.Context, owner string, includeInactive bool) ([]ledger.Account, error) {
	return listAccounts(ctx, s.db, owner, includeInactive)
}

func listAccounts(ctx context.Context, q queryer, owner string, includeInactive bool) ([]ledger.Account, error) {
	rows, err := q.QueryContext(ctx, `
		select `+accountColumns+`
		from ledger_accounts
		where owner=? and (is_active or ?)
	`, owner, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ledger.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ledger.SortAccounts(res)
	return res, nil
}

func (s *Store) DeactivateAccount(ctx context.Context, owner, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var isSystem bool
	err = tx.QueryRowContext(ctx, `
		select is_system from ledger_accounts where account_id=? and owner=?
	`, id, owner).Scan(&isSystem)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrAccountNotFound
	}
	if err != nil {
		return err
	}
	if isSystem {
		return ledger.ErrProtected
	}
	if _, err := tx.ExecContext(ctx, `update ledger_accounts set is_active=0 where account_id=?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) EnsureSystemAccount(ctx context.Context, owner string, typ ledger.AccountType, subtype, name string) (ledger.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Account{}, err
	}
	defer func() { _ = tx.Rollback() }()

	acc, err := scanAccount(tx.QueryRowContext(ctx, `
		select `+accountColumns+`
		from ledger_accounts
		where owner=? and account_type=? and subtype=? and is_system and is_active
	`, owner, string(typ), subtype))
	if err == nil {
		return acc, tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, err
	}

	acc = ledger.Account{
		ID:        ids.New(),
		Owner:     owner,
		Name:      name,
		Type:      typ,
		Subtype:   subtype,
		IsSystem:  true,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if err := insertAccount(ctx, tx, acc); err != nil {
		return ledger.Account{}, err
	}
	return acc, tx.Commit()
}

func (s *Store) AppendBatch(ctx context.Context, b ledger.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range accountIDs(b.Entries) {
		var owner string
		var active bool
		err := tx.QueryRowContext(ctx, `
			select owner, is_active from ledger_accounts where account_id=?
		`, id).Scan(&owner, &active)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && (owner != b.Owner || !active)) {
			return ledger.ErrAccountNotFound
		}
		if err != nil {
			return err
		}
	}

	if b.Reverses != "" {
		res, err := tx.ExecContext(ctx, `
			insert into ledger_reversals(transaction_id, reversed_by, created_at)
			values (?,?,?) on conflict (transaction_id) do nothing
		`, b.Reverses, b.TransactionID, formatTime(s.now()))
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ledger.ErrAlreadyReversed
		}
	}

	for _, e := range b.Entries {
		if _, err := tx.ExecContext(ctx, `
			insert into ledger_entries(entry_id, transaction_id, owner, account_id, entry_date,
				debit, credit, description, reference_type, reference_id)
			values (?,?,?,?,?,?,?,?,nullif(?,''),nullif(?,''))
		`, e.ID, b.TransactionID, b.Owner, e.AccountID, formatTime(e.PostedAt),
			e.Debit.StringFixed(2), e.Credit.StringFixed(2), e.Description, e.Reference.Type, e.Reference.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func accountIDs(entries []ledger.Entry) []string {
	seen := make(map[string]bool, len(entries))
	var res []string
	for _, e := range entries {
		if !seen[e.AccountID] {
			seen[e.AccountID] = true
			res = append(res, e.AccountID)
		}
	}
	sort.Strings(res)
	return res
}

const entryColumns = `entry_id, transaction_id, owner, account_id, entry_date, debit, credit, description,
		coalesce(reference_type,''), coalesce(reference_id,'')`

func scanEntry(r rowScanner) (ledger.Entry, error) {
	var e ledger.Entry
	var posted string
	if err := r.Scan(&e.ID, &e.TransactionID, &e.Owner, &e.AccountID, &posted,
		&e.Debit, &e.Credit, &e.Description, &e.Reference.Type, &e.Reference.ID); err != nil {
		return ledger.Entry{}, err
	}
	t, err := parseTime(posted)
	if err != nil {
		return ledger.Entry{}, err
	}
	e.PostedAt = t
	return e, nil
}

func entryWhere(owner string, f ledger.EntryFilter) (string, []any) {
	conds := []string{"owner=?"}
	args := []any{owner}
	add := func(cond string, v any) {
		conds = append(conds, cond)
		args = append(args, v)
	}
	if f.AccountID != "" {
		add("account_id=?", f.AccountID)
	}
	if f.TransactionID != "" {
		add("transaction_id=?", f.TransactionID)
	}
	if f.ReferenceType != "" {
		add("reference_type=?", f.ReferenceType)
	}
	if !f.From.IsZero() {
		add("entry_date >= ?", formatTime(f.From))
	}
	if !f.To.IsZero() {
		add("entry_date < ?", formatTime(f.To))
	}
	return strings.Join(conds, " and "), args
}

func (s *Store) Entries(ctx context.Context, owner string, f ledger.EntryFilter, limit, offset int) ([]ledger.Entry, int, error) {
	where, args := entryWhere(owner, f)

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from ledger_entries where `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		select `+entryColumns+`
		from ledger_entries
		where `+where+`
		order by entry_date desc, entry_id desc
		limit ? offset ?
	`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, e)
	}
	return res, total, rows.Err()
}

func (s *Store) TransactionEntries(ctx context.Context, transactionID string) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+entryColumns+`
		from ledger_entries
		where transaction_id=?
		order by entry_id asc
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Balances sums in Go: SQLite arithmetic on decimal text would go through
// floating point. Accounts and entries are read in one transaction.
func (s *Store) Balances(ctx context.Context, owner string) ([]ledger.AccountBalance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	accs, err := listAccounts(ctx, tx, owner, true)
	if err != nil {
		return nil, err
	}
	res := make([]ledger.AccountBalance, len(accs))
	index := make(map[string]int, len(accs))
	for i, a := range accs {
		res[i] = ledger.AccountBalance{Account: a, Debits: decimal.Zero, Credits: decimal.Zero}
		index[a.ID] = i
	}

	rows, err := tx.QueryContext(ctx, `
		select account_id, debit, credit from ledger_entries where owner=?
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var debit, credit decimal.Decimal
		if err := rows.Scan(&id, &debit, &credit); err != nil {
			return nil, err
		}
		i, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("entry for unknown account %s", id)
		}
		res[i].Debits = res[i].Debits.Add(debit)
		res[i].Credits = res[i].Credits.Add(credit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, tx.Commit()
}
