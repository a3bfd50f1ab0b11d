// Package store provides the SQLite-backed persistence for the reply
// engine: rules, users (routing state), the message log, and the commerce
// catalog the query tools read. Every store is a thin
// wrapper over one shared *sql.DB; the engine depends only on the
// interfaces defined in the rules, tools, and engine packages.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver.
)

// schema is the DDL executed on every startup (idempotent via IF NOT EXISTS).
const schema = `
-- Keyword reply rules. Counters are updated atomically in place.
CREATE TABLE IF NOT EXISTS rules (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    keywords        TEXT NOT NULL DEFAULT '[]',
    mode            TEXT NOT NULL DEFAULT 'automate',
    priority        INTEGER NOT NULL DEFAULT 100,
    active          INTEGER NOT NULL DEFAULT 1,
    model_id        TEXT DEFAULT '',
    instructions    TEXT DEFAULT '',
    handoff_text    TEXT DEFAULT '',
    tool_config     TEXT DEFAULT '{}',
    quick_replies   TEXT DEFAULT '[]',
    trigger_count   INTEGER NOT NULL DEFAULT 0,
    total_tokens    INTEGER NOT NULL DEFAULT 0,
    avg_response_ms REAL NOT NULL DEFAULT 0
);

-- Chat users: per-conversation routing state. The commerce identity link
-- lives on customers.channel_user_id.
CREATE TABLE IF NOT EXISTS users (
    channel_user_id TEXT PRIMARY KEY,
    account_id      TEXT DEFAULT '',
    routing_state   TEXT NOT NULL DEFAULT 'idle',
    updated_at      TEXT NOT NULL
);

-- Message log (append/query only).
CREATE TABLE IF NOT EXISTS messages (
    id                TEXT PRIMARY KEY,
    channel_user_id   TEXT NOT NULL,
    sender_role       TEXT NOT NULL,
    text              TEXT NOT NULL,
    correlation_token TEXT DEFAULT '',
    raw_metadata      TEXT DEFAULT '{}',
    created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(channel_user_id, created_at);

-- Linked commerce customers.
CREATE TABLE IF NOT EXISTS customers (
    id              TEXT PRIMARY KEY,
    channel_user_id TEXT UNIQUE,
    email           TEXT DEFAULT '',
    first_name      TEXT DEFAULT '',
    last_name       TEXT DEFAULT '',
    phone           TEXT DEFAULT '',
    metadata        TEXT DEFAULT '{}'
);

-- Orders, with line items denormalized as JSON.
CREATE TABLE IF NOT EXISTS orders (
    id          TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL,
    number      TEXT NOT NULL,
    status      TEXT NOT NULL,
    total       REAL NOT NULL DEFAULT 0,
    currency    TEXT DEFAULT '',
    items       TEXT DEFAULT '[]',
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id, created_at);

-- Product catalog, variants/categories/tags denormalized as JSON.
CREATE TABLE IF NOT EXISTS products (
    id                TEXT PRIMARY KEY,
    sku               TEXT DEFAULT '',
    title             TEXT NOT NULL,
    description       TEXT DEFAULT '',
    short_description TEXT DEFAULT '',
    price             REAL NOT NULL DEFAULT 0,
    stock             INTEGER NOT NULL DEFAULT 0,
    categories        TEXT DEFAULT '[]',
    tags              TEXT DEFAULT '[]',
    variants          TEXT DEFAULT '[]'
);

-- Site content (pages, posts, FAQ entries).
CREATE TABLE IF NOT EXISTS contents (
    id         TEXT PRIMARY KEY,
    category   TEXT NOT NULL,
    title      TEXT NOT NULL,
    body       TEXT DEFAULT '',
    url        TEXT DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contents_category ON contents(category, created_at);
`

// Open opens (or creates) the engine database at path. WAL mode is enabled
// for concurrent webhook deliveries; the schema is applied idempotently.
// An empty path falls back to ./data/autoreply.db; ":memory:" works for
// tests.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		path = "./data/autoreply.db"
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %q: %w", dir, err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}

	// Each pooled connection to :memory: would see its own empty database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}
