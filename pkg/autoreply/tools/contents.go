package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// contentCacheTTL is how long a content-search result stays cached.
	contentCacheTTL = time.Hour

	// defaultPerCategory caps results per category unless the rule config
	// overrides it.
	defaultPerCategory = 3
)

// contentCache memoizes content-search results per (categories, keyword)
// pair. Entries expire lazily on read; there is no janitor.
type contentCache struct {
	mu      sync.Mutex
	entries map[string]contentCacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type contentCacheEntry struct {
	contents  []Content
	expiresAt time.Time
}

func newContentCache(ttl time.Duration) *contentCache {
	if ttl <= 0 {
		ttl = contentCacheTTL
	}
	return &contentCache{
		entries: make(map[string]contentCacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *contentCache) get(key string) ([]Content, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.contents, true
}

func (c *contentCache) put(key string, contents []Content) {
	c.mu.Lock()
	c.entries[key] = contentCacheEntry{
		contents:  contents,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// contentCacheKey builds a stable key from the sorted category list and a
// hash of the keyword.
func contentCacheKey(categories []string, keyword string) string {
	sorted := make([]string, len(categories))
	copy(sorted, categories)
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.ToLower(keyword)))
	return strings.Join(sorted, ",") + "|" + hex.EncodeToString(sum[:8])
}

// NewContentSearchTool builds the content-search tool. The rule's enablement
// config supplies the allowed categories (key "categories") and an optional
// per-category result cap (key "limit"); Execute injects both into the
// arguments. At least one configured category is required. The description
// shown to the LLM enumerates the configured categories.
func NewContentSearchTool(contents ContentStore) *Tool {
	cache := newContentCache(contentCacheTTL)
	base := "Search site content (pages, posts, FAQs) by keyword within the allowed categories."

	return &Tool{
		Name:        "content_search",
		Description: base,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"keyword": map[string]any{
					"type":        "string",
					"description": "Optional search term. Without it, recent entries per category are returned.",
				},
			},
		},
		Describe: func(config map[string]any) string {
			categories := stringsArg(config, "categories")
			if len(categories) == 0 {
				return base
			}
			return base + " Available categories: " + strings.Join(categories, ", ") + "."
		},
		Validate: func(args map[string]any) error {
			if len(stringsArg(args, "categories")) == 0 {
				return fmt.Errorf("no content categories are configured for this rule")
			}
			return nil
		},
		Handler: func(ctx context.Context, args map[string]any, call CallContext) (any, error) {
			categories := stringsArg(args, "categories")
			keyword := stringArg(args, "keyword")
			perCategory := intArg(args, "limit", defaultPerCategory)

			key := contentCacheKey(categories, keyword)
			list, hit := cache.get(key)
			if !hit {
				var err error
				list, err = contents.SearchContents(ctx, categories, keyword, perCategory)
				if err != nil {
					return nil, fmt.Errorf("searching contents: %w", err)
				}
				cache.put(key, list)
			}

			if len(list) == 0 {
				return nil, fmt.Errorf("%w: no content matches in categories %s", ErrNoResults, strings.Join(categories, ", "))
			}

			out := make([]Content, len(list))
			copy(out, list)
			for i := range out {
				out[i].Body = snippet(out[i].Body, keyword)
			}

			return map[string]any{
				"success":  true,
				"contents": out,
				"total":    len(out),
			}, nil
		},
	}
}
