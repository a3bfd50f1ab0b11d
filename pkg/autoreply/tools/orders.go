package tools

import (
	"context"
	"fmt"
	"time"
)

// orderDateLayout is the date format accepted in order lookup filters.
const orderDateLayout = "2006-01-02"

// NewOrderLookupTool builds the order-lookup tool. It requires a linked
// commerce identity and returns the caller's recent orders, optionally
// filtered by status, date range, or order number. Zero matching orders is
// a success with an empty list; an unlinked caller is an error.
func NewOrderLookupTool(accounts AccountStore, orders OrderStore) *Tool {
	return &Tool{
		Name:          "order_lookup",
		Description:   "Look up the customer's recent orders. Supports optional filters: order status, date range (YYYY-MM-DD), and order number.",
		NeedsIdentity: true,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{
					"type":        "string",
					"description": "Filter by order status (e.g. pending, processing, completed, cancelled, refunded).",
				},
				"order_number": map[string]any{
					"type":        "string",
					"description": "Look up one specific order by its number.",
				},
				"date_from": map[string]any{
					"type":        "string",
					"description": "Only orders placed on or after this date, YYYY-MM-DD.",
				},
				"date_to": map[string]any{
					"type":        "string",
					"description": "Only orders placed on or before this date, YYYY-MM-DD.",
				},
			},
		},
		Validate: func(args map[string]any) error {
			for _, key := range []string{"date_from", "date_to"} {
				if raw := stringArg(args, key); raw != "" {
					if _, err := time.Parse(orderDateLayout, raw); err != nil {
						return fmt.Errorf("%s must be YYYY-MM-DD", key)
					}
				}
			}
			return nil
		},
		Handler: func(ctx context.Context, args map[string]any, call CallContext) (any, error) {
			customer, err := accounts.CustomerByChannelUser(ctx, call.ChannelUserID)
			if err != nil {
				return nil, fmt.Errorf("looking up customer: %w", err)
			}
			if customer == nil {
				return nil, fmt.Errorf("%w: this chat user has no linked store account", ErrNotLinked)
			}

			filter := OrderFilter{
				Status:      stringArg(args, "status"),
				OrderNumber: stringArg(args, "order_number"),
				Limit:       10,
			}
			if raw := stringArg(args, "date_from"); raw != "" {
				filter.After, _ = time.Parse(orderDateLayout, raw)
			}
			if raw := stringArg(args, "date_to"); raw != "" {
				filter.Before, _ = time.Parse(orderDateLayout, raw)
			}

			list, err := orders.OrdersByCustomer(ctx, customer.ID, filter)
			if err != nil {
				return nil, fmt.Errorf("querying orders: %w", err)
			}

			// No orders is a normal answer, not a failure.
			return map[string]any{
				"success": true,
				"orders":  list,
				"total":   len(list),
			}, nil
		},
	}
}
