package tools

import (
	"context"
	"time"
)

// Customer is a chat user's linked commerce identity.
type Customer struct {
	ID            string
	ChannelUserID string
	Email         string
	FirstName     string
	LastName      string
	Phone         string

	// Metadata is free-form account metadata; the account-info tool filters
	// it through a deny-list before exposure.
	Metadata map[string]string

	// Commerce summary stats, zero-valued when unavailable.
	OrderCount int
	TotalSpent float64
}

// OrderFilter narrows an order lookup.
type OrderFilter struct {
	Status      string
	OrderNumber string
	After       time.Time
	Before      time.Time
	Limit       int
}

// Order is one commerce order as the order-lookup tool reports it.
type Order struct {
	ID        string      `json:"id"`
	Number    string      `json:"number"`
	Status    string      `json:"status"`
	Total     float64     `json:"total"`
	Currency  string      `json:"currency"`
	CreatedAt time.Time   `json:"created_at"`
	Items     []OrderItem `json:"items,omitempty"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Total    float64 `json:"total"`
}

// Product is one catalog product as the product-search tool reports it.
type Product struct {
	ID               string    `json:"id"`
	SKU              string    `json:"sku"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	ShortDescription string    `json:"short_description"`
	Price            float64   `json:"price"`
	Stock            int       `json:"stock"`
	Categories       []string  `json:"categories,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	Variants         []Variant `json:"variants,omitempty"`
}

// Variant is one purchasable variation of a product.
type Variant struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

// Content is one piece of site content (page, post, FAQ entry).
type Content struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	URL      string `json:"url,omitempty"`
}

// AccountStore resolves chat users to linked commerce identities.
type AccountStore interface {
	// CustomerByChannelUser returns the linked customer, or nil when the
	// chat user has no linked identity.
	CustomerByChannelUser(ctx context.Context, channelUserID string) (*Customer, error)
}

// OrderStore queries orders for a linked customer.
type OrderStore interface {
	OrdersByCustomer(ctx context.Context, customerID string, f OrderFilter) ([]Order, error)
}

// ProductStore searches the product catalog.
type ProductStore interface {
	// SearchProducts matches keyword against title, descriptions, and SKU.
	SearchProducts(ctx context.Context, keyword string, limit int) ([]Product, error)
}

// ContentStore searches site content by category.
type ContentStore interface {
	// SearchContents returns up to perCategory entries per category,
	// optionally narrowed by keyword.
	SearchContents(ctx context.Context, categories []string, keyword string, perCategory int) ([]Content, error)
}
