package ledger

import "context"

// Store is the persistence substrate of the ledger. Implementations must make
// AppendBatch atomic and must serialise appends and system-account creation
// per owner.
type Store interface {
	// InsertAccount persists a new account. It returns ErrDuplicateName when an
	// active account with the same name exists for the owner.
	InsertAccount(ctx context.Context, acc Account) (Account, error)
	// FindAccount returns the owner's account or ErrAccountNotFound.
	FindAccount(ctx context.Context, owner, id string) (Account, error)
	ListAccounts(ctx context.Context, owner string, includeInactive bool) ([]Account, error)
	// DeactivateAccount clears is_active. It returns ErrAccountNotFound or
	// ErrProtected.
	DeactivateAccount(ctx context.Context, owner, id string) error
	// EnsureSystemAccount returns the active system account of the given
	// type and subtype, creating it with name when missing.
	EnsureSystemAccount(ctx context.Context, owner string, typ AccountType, subtype, name string) (Account, error)

	// AppendBatch writes every entry of b or none. Each referenced account
	// must be active and owned by b.Owner, else ErrAccountNotFound.
	AppendBatch(ctx context.Context, b Batch) error
	// Entries returns a page of the owner's entries, newest first, plus the
	// total number of matching entries.
	Entries(ctx context.Context, owner string, f EntryFilter, limit, offset int) ([]Entry, int, error)
	// TransactionEntries returns all entries of a transaction regardless of
	// owner, oldest first.
	TransactionEntries(ctx context.Context, transactionID string) ([]Entry, error)
	// Balances aggregates debit and credit totals for every account of the
	// owner, including inactive accounts.
	Balances(ctx context.Context, owner string) ([]AccountBalance, error)
}
