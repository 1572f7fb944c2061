package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const maxNameLen = 128

// SystemAccount describes an account the platform creates on behalf of an owner.
type SystemAccount struct {
	Type    AccountType
	Subtype string
	Name    string
}

// Default system accounts provisioned for every owner.
var (
	CashAccount         = SystemAccount{Asset, SubtypeCash, "Cash"}
	InventoryAccount    = SystemAccount{Asset, SubtypeInventory, "Inventory Asset"}
	OwnerCapitalAccount = SystemAccount{Equity, SubtypeOwnerCapital, "Owner Capital"}
	SalesAccount        = SystemAccount{Revenue, SubtypeSales, "Sales Revenue"}
	FeesAccount         = SystemAccount{Expense, SubtypeFees, "Fees Expense"}
	ShippingAccount     = SystemAccount{Expense, SubtypeShipping, "Shipping Expense"}
	COGSAccount         = SystemAccount{Expense, SubtypeCOGS, "Cost of Goods Sold"}
)

// DefaultChart returns the system accounts created at registration.
func DefaultChart() []SystemAccount {
	return []SystemAccount{
		CashAccount,
		InventoryAccount,
		OwnerCapitalAccount,
		SalesAccount,
		FeesAccount,
		ShippingAccount,
		COGSAccount,
	}
}

// CreateAccount adds a non-system, active account to the owner's chart.
func (s *Service) CreateAccount(ctx context.Context, owner, name string, typ AccountType, subtype string) (Account, error) {
	if err := checkOwner(owner); err != nil {
		return Account{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Account{}, invalid("account name is required")
	}
	if len(name) > maxNameLen {
		return Account{}, invalid("account name must be <= %d characters", maxNameLen)
	}
	if !typ.Valid() {
		return Account{}, invalid("invalid account type %q: must be one of ASSET, LIABILITY, EQUITY, REVENUE, EXPENSE", typ)
	}
	acc, err := s.store.InsertAccount(ctx, Account{
		Owner:   owner,
		Name:    name,
		Type:    typ,
		Subtype: strings.ToUpper(strings.TrimSpace(subtype)),
	})
	if err != nil {
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	s.log.InfoContext(ctx, "account created", "owner", owner, "account_id", acc.ID, "type", acc.Type)
	return acc, nil
}

// ListAccounts returns the owner's chart in canonical order.
func (s *Service) ListAccounts(ctx context.Context, owner string, includeInactive bool) ([]Account, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	accs, err := s.store.ListAccounts(ctx, owner, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accs, nil
}

// DeactivateAccount soft-deletes a user account. Its entries remain.
func (s *Service) DeactivateAccount(ctx context.Context, owner, accountID string) error {
	if err := checkOwner(owner); err != nil {
		return err
	}
	if err := s.store.DeactivateAccount(ctx, owner, accountID); err != nil {
		if errors.Is(err, ErrProtected) {
			return fmt.Errorf("%w: cannot deactivate system account %s", ErrProtected, accountID)
		}
		return fmt.Errorf("deactivate account %s: %w", accountID, err)
	}
	s.log.InfoContext(ctx, "account deactivated", "owner", owner, "account_id", accountID)
	return nil
}

// GetOrCreateSystemAccount resolves a system account, creating it on first use.
func (s *Service) GetOrCreateSystemAccount(ctx context.Context, owner string, typ AccountType, subtype, defaultName string) (Account, error) {
	if err := checkOwner(owner); err != nil {
		return Account{}, err
	}
	if !typ.Valid() {
		return Account{}, invalid("invalid account type %q", typ)
	}
	subtype = strings.ToUpper(strings.TrimSpace(subtype))
	if subtype == "" || strings.TrimSpace(defaultName) == "" {
		return Account{}, invalid("system account requires subtype and name")
	}
	acc, err := s.store.EnsureSystemAccount(ctx, owner, typ, subtype, strings.TrimSpace(defaultName))
	if err != nil {
		return Account{}, fmt.Errorf("ensure system account %s/%s: %w", typ, subtype, err)
	}
	return acc, nil
}

// SystemAccount is GetOrCreateSystemAccount for a predefined descriptor.
func (s *Service) SystemAccount(ctx context.Context, owner string, sa SystemAccount) (Account, error) {
	return s.GetOrCreateSystemAccount(ctx, owner, sa.Type, sa.Subtype, sa.Name)
}

// ProvisionOwner creates the default chart for a newly registered owner.
// Calling it again is harmless.
func (s *Service) ProvisionOwner(ctx context.Context, owner string) ([]Account, error) {
	chart := DefaultChart()
	res := make([]Account, 0, len(chart))
	for _, sa := range chart {
		acc, err := s.SystemAccount(ctx, owner, sa)
		if err != nil {
			return nil, err
		}
		res = append(res, acc)
	}
	return res, nil
}
