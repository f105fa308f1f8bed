package postgres

// schema is applied by Migrate. Holdings and amounts are NUMERIC so the full
// uint64 range fits; BIGINT would stop at 2^63-1.
const schema = `
CREATE TABLE IF NOT EXISTS ledger_accounts (
	address    BYTEA PRIMARY KEY,
	data       BYTEA NOT NULL CHECK (octet_length(data) = 48),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS holdings (
	address BYTEA PRIMARY KEY,
	amount  NUMERIC(20,0) NOT NULL CHECK (amount >= 0 AND amount <= 18446744073709551615)
);

CREATE TABLE IF NOT EXISTS operations (
	id         UUID PRIMARY KEY,
	kind       TEXT NOT NULL,
	authority  BYTEA NOT NULL,
	account    BYTEA NOT NULL,
	amount     NUMERIC(20,0) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id           UUID PRIMARY KEY,
	operation_id UUID NOT NULL,
	address      BYTEA NOT NULL,
	amount       NUMERIC(21,0) NOT NULL,
	memo         TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS ledger_entries_address_idx ON ledger_entries (address, created_at);
`
