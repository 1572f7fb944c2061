package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"artifactlive.org/internal/ids"
	"artifactlive.org/internal/ledger"
)

const uniqueViolation = "23505"

// Store implements ledger.Store and pricing.ConfigStore on PostgreSQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ ledger.Store = (*Store)(nil)

// Open connects through the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db), nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// lockOwner serialises writers of one owner for the rest of tx.
func lockOwner(ctx context.Context, tx *sql.Tx, owner string) error {
	if _, err := tx.ExecContext(ctx, `select pg_advisory_xact_lock(hashtext($1))`, owner); err != nil {
		return fmt.Errorf("lock owner: %w", err)
	}
	return nil
}

const accountColumns = `account_id, owner, account_name, account_type, subtype, is_system, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (ledger.Account, error) {
	var a ledger.Account
	var typ string
	if err := r.Scan(&a.ID, &a.Owner, &a.Name, &typ, &a.Subtype, &a.IsSystem, &a.IsActive, &a.CreatedAt); err != nil {
		return ledger.Account{}, err
	}
	a.Type = ledger.AccountType(typ)
	return a, nil
}

func (s *Store) InsertAccount(ctx context.Context, acc ledger.Account) (ledger.Account, error) {
	if acc.ID == "" {
		acc.ID = ids.New()
	}
	acc.IsActive = true
	acc.CreatedAt = s.now()
	_, err := s.db.ExecContext(ctx, `
		insert into ledger_accounts(`+accountColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, acc.ID, acc.Owner, acc.Name, string(acc.Type), acc.Subtype, acc.IsSystem, acc.IsActive, acc.CreatedAt)
	if isUniqueViolation(err) {
		return ledger.Account{}, ledger.ErrDuplicateName
	}
	if err != nil {
		return ledger.Account{}, err
	}
	return acc, nil
}

func (s *Store) FindAccount(ctx context.Context, owner, id string) (ledger.Account, error) {
	acc, err := scanAccount(s.db.QueryRowContext(ctx, `
		select `+accountColumns+` from ledger_accounts where account_id=$1 and owner=$2
	`, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return acc, err
}

const typeOrder = `case account_type
			when 'ASSET' then 0 when 'LIABILITY' then 1 when 'EQUITY' then 2
			when 'REVENUE' then 3 when 'EXPENSE' then 4 else 5 end`

func (s *Store) ListAccounts(ctx context.Context, owner string, includeInactive bool) ([]ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+accountColumns+`
		from ledger_accounts
		where owner=$1 and (is_active or $2)
		order by `+typeOrder+`, account_name, account_id
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
	return res, rows.Err()
}

func (s *Store) DeactivateAccount(ctx context.Context, owner, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var isSystem bool
	err = tx.QueryRowContext(ctx, `
		select is_system from ledger_accounts where account_id=$1 and owner=$2 for update
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
	if _, err := tx.ExecContext(ctx, `update ledger_accounts set is_active=false where account_id=$1`, id); err != nil {
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
	if err := lockOwner(ctx, tx, owner); err != nil {
		return ledger.Account{}, err
	}

	acc, err := scanAccount(tx.QueryRowContext(ctx, `
		select `+accountColumns+`
		from ledger_accounts
		where owner=$1 and account_type=$2 and subtype=$3 and is_system and is_active
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
	_, err = tx.ExecContext(ctx, `
		insert into ledger_accounts(`+accountColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, acc.ID, acc.Owner, acc.Name, string(acc.Type), acc.Subtype, acc.IsSystem, acc.IsActive, acc.CreatedAt)
	if isUniqueViolation(err) {
		return ledger.Account{}, ledger.ErrDuplicateName
	}
	if err != nil {
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
	if err := lockOwner(ctx, tx, b.Owner); err != nil {
		return err
	}

	// Lock referenced accounts in stable order to avoid deadlocks with
	// concurrent deactivation.
	for _, id := range accountIDs(b.Entries) {
		var owner string
		var active bool
		err := tx.QueryRowContext(ctx, `
			select owner, is_active from ledger_accounts where account_id=$1 for share
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
			values ($1,$2,$3) on conflict (transaction_id) do nothing
		`, b.Reverses, b.TransactionID, s.now())
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
			values ($1,$2,$3,$4,$5,$6,$7,$8,nullif($9,''),nullif($10,''))
		`, e.ID, b.TransactionID, b.Owner, e.AccountID, e.PostedAt,
			e.Debit, e.Credit, e.Description, e.Reference.Type, e.Reference.ID); err != nil {
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
	err := r.Scan(&e.ID, &e.TransactionID, &e.Owner, &e.AccountID, &e.PostedAt,
		&e.Debit, &e.Credit, &e.Description, &e.Reference.Type, &e.Reference.ID)
	return e, err
}

func entryWhere(owner string, f ledger.EntryFilter) (string, []any) {
	conds := []string{"owner=$1"}
	args := []any{owner}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.AccountID != "" {
		add("account_id=$%d", f.AccountID)
	}
	if f.TransactionID != "" {
		add("transaction_id=$%d", f.TransactionID)
	}
	if f.ReferenceType != "" {
		add("reference_type=$%d", f.ReferenceType)
	}
	if !f.From.IsZero() {
		add("entry_date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("entry_date < $%d", f.To)
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
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		select %s
		from ledger_entries
		where %s
		order by entry_date desc, entry_id desc
		limit $%d offset $%d
	`, entryColumns, where, len(args)-1, len(args)), args...)
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
		where transaction_id=$1
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

func (s *Store) Balances(ctx context.Context, owner string) ([]ledger.AccountBalance, error) {
	rows, err := s.db.QueryContext(ctx, `
		select a.account_id, a.owner, a.account_name, a.account_type, a.subtype, a.is_system, a.is_active, a.created_at,
			coalesce(sum(e.debit),0), coalesce(sum(e.credit),0)
		from ledger_accounts a
		left join ledger_entries e on e.account_id = a.account_id
		where a.owner=$1
		group by a.account_id
		order by `+strings.ReplaceAll(typeOrder, "account_type", "a.account_type")+`, a.account_name, a.account_id
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ledger.AccountBalance
	for rows.Next() {
		var b ledger.AccountBalance
		var typ string
		if err := rows.Scan(&b.ID, &b.Owner, &b.Name, &typ, &b.Subtype, &b.IsSystem, &b.IsActive, &b.CreatedAt,
			&b.Debits, &b.Credits); err != nil {
			return nil, err
		}
		b.Type = ledger.AccountType(typ)
		res = append(res, b)
	}
	return res, rows.Err()
}
