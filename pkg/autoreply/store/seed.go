package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openchat-labs/autoreply/pkg/autoreply/tools"
)

// Write helpers for the commerce tables. The engine itself only reads
// these; writes come from sync jobs and tests.

// SaveCustomer inserts or replaces a linked customer.
func (s *CommerceStore) SaveCustomer(ctx context.Context, c tools.Customer) error {
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("encoding customer metadata: %w", err)
	}
	if c.Metadata == nil {
		meta = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO customers
			(id, channel_user_id, email, first_name, last_name, phone, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ChannelUserID, c.Email, c.FirstName, c.LastName, c.Phone, string(meta))
	if err != nil {
		return fmt.Errorf("saving customer %s: %w", c.ID, err)
	}
	return nil
}

// SaveOrder inserts or replaces an order for a customer.
func (s *CommerceStore) SaveOrder(ctx context.Context, customerID string, o tools.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encoding order items: %w", err)
	}
	if o.Items == nil {
		items = []byte("[]")
	}
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO orders
			(id, customer_id, number, status, total, currency, items, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, customerID, o.Number, o.Status, o.Total, o.Currency,
		string(items), createdAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving order %s: %w", o.ID, err)
	}
	return nil
}

// SaveProduct inserts or replaces a catalog product.
func (s *CommerceStore) SaveProduct(ctx context.Context, p tools.Product) error {
	categories, _ := json.Marshal(orEmptyStrings(p.Categories))
	tags, _ := json.Marshal(orEmptyStrings(p.Tags))
	variants, err := json.Marshal(p.Variants)
	if err != nil {
		return fmt.Errorf("encoding product variants: %w", err)
	}
	if p.Variants == nil {
		variants = []byte("[]")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO products
			(id, sku, title, description, short_description, price, stock,
			 categories, tags, variants)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SKU, p.Title, p.Description, p.ShortDescription, p.Price,
		p.Stock, string(categories), string(tags), string(variants))
	if err != nil {
		return fmt.Errorf("saving product %s: %w", p.ID, err)
	}
	return nil
}

// SaveContent inserts or replaces a content entry.
func (s *CommerceStore) SaveContent(ctx context.Context, c tools.Content) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO contents (id, category, title, body, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Category, c.Title, c.Body, c.URL,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving content %s: %w", c.ID, err)
	}
	return nil
}
