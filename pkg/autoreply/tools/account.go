package tools

import (
	"context"
	"fmt"
	"strings"
)

// metadataDenyPrefixes hides security- and internal-settings keys from the
// account-info output. Matching is by prefix on the lowercased key.
var metadataDenyPrefixes = []string{
	"_",
	"password",
	"secret",
	"token",
	"session",
	"api_key",
	"apikey",
	"auth",
	"internal_",
	"wp_",
	"billing_card",
}

// NewAccountInfoTool builds the account-info tool. It requires a linked
// account and returns profile fields plus deny-list-filtered metadata,
// with commerce summary stats when available.
func NewAccountInfoTool(accounts AccountStore) *Tool {
	return &Tool{
		Name:          "account_info",
		Description:   "Get the customer's account profile: name, contact details, membership metadata, and purchase summary.",
		NeedsIdentity: true,
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, args map[string]any, call CallContext) (any, error) {
			customer, err := accounts.CustomerByChannelUser(ctx, call.ChannelUserID)
			if err != nil {
				return nil, fmt.Errorf("looking up customer: %w", err)
			}
			if customer == nil {
				return nil, fmt.Errorf("%w: this chat user has no linked account", ErrNotLinked)
			}

			info := map[string]any{
				"success":    true,
				"email":      customer.Email,
				"first_name": customer.FirstName,
				"last_name":  customer.LastName,
				"phone":      customer.Phone,
				"metadata":   filterMetadata(customer.Metadata),
			}
			if customer.OrderCount > 0 {
				info["order_count"] = customer.OrderCount
				info["total_spent"] = customer.TotalSpent
			}
			return info, nil
		},
	}
}

// filterMetadata drops keys matching the deny-list prefixes.
func filterMetadata(meta map[string]string) map[string]string {
	filtered := make(map[string]string, len(meta))
	for k, v := range meta {
		if deniedKey(k) {
			continue
		}
		filtered[k] = v
	}
	return filtered
}

func deniedKey(key string) bool {
	lower := strings.ToLower(key)
	for _, prefix := range metadataDenyPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
