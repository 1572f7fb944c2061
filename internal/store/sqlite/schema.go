package sqlite

// schema is applied on every Open; each statement is idempotent.
// Amounts are kept as decimal text and timestamps as fixed-width UTC text so
// that lexical order matches chronological order.
const schema = `
create table if not exists ledger_accounts (
    account_id   text primary key,
    owner        text not null,
    account_name text not null check (length(account_name) <= 128),
    account_type text not null check (account_type in ('ASSET','LIABILITY','EQUITY','REVENUE','EXPENSE')),
    subtype      text not null default '',
    is_system    integer not null default 0,
    is_active    integer not null default 1,
    created_at   text not null
);

create unique index if not exists ledger_accounts_active_name
    on ledger_accounts (owner, account_name) where is_active;

create unique index if not exists ledger_accounts_system_subtype
    on ledger_accounts (owner, account_type, subtype) where is_system and is_active;

create table if not exists ledger_entries (
    entry_id       text primary key,
    transaction_id text not null,
    owner          text not null,
    account_id     text not null references ledger_accounts (account_id),
    entry_date     text not null,
    debit          text not null default '0',
    credit         text not null default '0',
    description    text not null default '' check (length(description) <= 255),
    reference_type text,
    reference_id   text
);

create index if not exists ledger_entries_owner_date
    on ledger_entries (owner, entry_date desc, entry_id desc);

create index if not exists ledger_entries_transaction
    on ledger_entries (transaction_id);

create trigger if not exists ledger_entries_no_update
before update on ledger_entries
begin
    select raise(abort, 'ledger entries are append-only');
end;

create trigger if not exists ledger_entries_no_delete
before delete on ledger_entries
begin
    select raise(abort, 'ledger entries are append-only');
end;

create table if not exists ledger_reversals (
    transaction_id text primary key,
    reversed_by    text not null,
    created_at     text not null
);

create table if not exists pricing_config (
    owner        text not null,
    config_key   text not null,
    config_value text not null,
    updated_at   text not null,
    primary key (owner, config_key)
);
`
