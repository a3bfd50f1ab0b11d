package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openchat-labs/autoreply/pkg/autoreply/tools"
)

// CommerceStore serves the read-only commerce queries behind the LLM tools.
// Implements tools.AccountStore, tools.OrderStore, tools.ProductStore, and
// tools.ContentStore.
type CommerceStore struct {
	db *sql.DB
}

// NewCommerceStore wraps the shared database.
func NewCommerceStore(db *sql.DB) *CommerceStore {
	return &CommerceStore{db: db}
}

// CustomerByChannelUser resolves a chat user to their linked customer, with
// commerce summary stats. Returns nil when unlinked.
func (s *CommerceStore) CustomerByChannelUser(ctx context.Context, channelUserID string) (*tools.Customer, error) {
	var (
		c    tools.Customer
		meta string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, channel_user_id, email, first_name, last_name, phone, metadata
		FROM customers WHERE channel_user_id = ?`,
		channelUserID).Scan(&c.ID, &c.ChannelUserID, &c.Email, &c.FirstName,
		&c.LastName, &c.Phone, &meta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying customer: %w", err)
	}

	if err := json.Unmarshal([]byte(meta), &c.Metadata); err != nil {
		return nil, fmt.Errorf("customer %s: decoding metadata: %w", c.ID, err)
	}

	// Summary stats; absence of orders just leaves them zero.
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM orders WHERE customer_id = ?`,
		c.ID).Scan(&c.OrderCount, &c.TotalSpent)
	if err != nil {
		return nil, fmt.Errorf("querying order summary: %w", err)
	}

	return &c, nil
}

// LinkChannelUser binds a chat user to an existing customer. This is the
// write side of CustomerByChannelUser; an unknown customer id is an error.
func (s *CommerceStore) LinkChannelUser(ctx context.Context, customerID, channelUserID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE customers SET channel_user_id = ? WHERE id = ?`,
		channelUserID, customerID)
	if err != nil {
		return fmt.Errorf("linking channel user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("linking channel user: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("linking channel user: no customer %q", customerID)
	}
	return nil
}

// OrdersByCustomer returns the customer's orders, newest first, narrowed by
// the filter.
func (s *CommerceStore) OrdersByCustomer(ctx context.Context, customerID string, f tools.OrderFilter) ([]tools.Order, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, number, status, total, currency, items, created_at
		FROM orders WHERE customer_id = ?`)
	args := []any{customerID}

	if f.Status != "" {
		query.WriteString(` AND status = ?`)
		args = append(args, f.Status)
	}
	if f.OrderNumber != "" {
		query.WriteString(` AND number = ?`)
		args = append(args, f.OrderNumber)
	}
	if !f.After.IsZero() {
		query.WriteString(` AND created_at >= ?`)
		args = append(args, f.After.UTC().Format(time.RFC3339))
	}
	if !f.Before.IsZero() {
		query.WriteString(` AND created_at <= ?`)
		args = append(args, f.Before.UTC().Format(time.RFC3339))
	}

	query.WriteString(` ORDER BY created_at DESC`)
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	query.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	out := []tools.Order{}
	for rows.Next() {
		var (
			o         tools.Order
			items, ts string
		)
		if err := rows.Scan(&o.ID, &o.Number, &o.Status, &o.Total,
			&o.Currency, &items, &ts); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
			return nil, fmt.Errorf("order %s: decoding items: %w", o.ID, err)
		}
		o.CreatedAt, _ = time.Parse(time.RFC3339, ts)
		out = append(out, o)
	}
	return out, rows.Err()
}

// SearchProducts matches keyword case-insensitively against title,
// description, short description, and SKU.
func (s *CommerceStore) SearchProducts(ctx context.Context, keyword string, limit int) ([]tools.Product, error) {
	if limit <= 0 {
		limit = 5
	}
	pattern := "%" + strings.ToLower(keyword) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, title, description, short_description, price, stock,
		       categories, tags, variants
		FROM products
		WHERE lower(title) LIKE ?
		   OR lower(description) LIKE ?
		   OR lower(short_description) LIKE ?
		   OR lower(sku) LIKE ?
		LIMIT ?`,
		pattern, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	defer rows.Close()

	out := []tools.Product{}
	for rows.Next() {
		var (
			p                          tools.Product
			categories, tags, variants string
		)
		if err := rows.Scan(&p.ID, &p.SKU, &p.Title, &p.Description,
			&p.ShortDescription, &p.Price, &p.Stock, &categories, &tags,
			&variants); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		if err := json.Unmarshal([]byte(categories), &p.Categories); err != nil {
			return nil, fmt.Errorf("product %s: decoding categories: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
			return nil, fmt.Errorf("product %s: decoding tags: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(variants), &p.Variants); err != nil {
			return nil, fmt.Errorf("product %s: decoding variants: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SearchContents returns up to perCategory entries per category, newest
// first, optionally narrowed by keyword against title and body.
func (s *CommerceStore) SearchContents(ctx context.Context, categories []string, keyword string, perCategory int) ([]tools.Content, error) {
	if perCategory <= 0 {
		perCategory = 3
	}

	out := []tools.Content{}
	for _, category := range categories {
		query := `
			SELECT id, category, title, body, url
			FROM contents WHERE category = ?`
		args := []any{category}

		if keyword != "" {
			query += ` AND (lower(title) LIKE ? OR lower(body) LIKE ?)`
			pattern := "%" + strings.ToLower(keyword) + "%"
			args = append(args, pattern, pattern)
		}
		query += ` ORDER BY created_at DESC LIMIT ?`
		args = append(args, perCategory)

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("searching contents in %q: %w", category, err)
		}

		for rows.Next() {
			var c tools.Content
			if err := rows.Scan(&c.ID, &c.Category, &c.Title, &c.Body, &c.URL); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning content: %w", err)
			}
			out = append(out, c)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}
