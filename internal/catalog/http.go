package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"restaurant-tables/internal/domain"
)

// Client fetches menu items from the catalog service over HTTP and keeps
// an LRU snapshot cache so repeated lookups during one service session do
// not hammer the catalog. Cached entries are snapshots: staleness is
// acceptable here for the same reason order items snapshot prices.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *lru.Cache[string, Item]
}

func NewClient(baseURL string, cacheSize int) (*Client, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, Item](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		cache:   cache,
	}, nil
}

func (c *Client) Item(ctx context.Context, itemID string) (Item, error) {
	if it, ok := c.cache.Get(itemID); ok {
		return it, nil
	}

	endpoint := fmt.Sprintf("%s/menu-items/%s", c.baseURL, url.PathEscape(itemID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Item{}, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Item{}, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Item{}, domain.Validationf("unknown menu item %q", itemID)
	default:
		return Item{}, fmt.Errorf("catalog returned status %d for item %s", resp.StatusCode, itemID)
	}

	var it Item
	if err := json.NewDecoder(resp.Body).Decode(&it); err != nil {
		return Item{}, fmt.Errorf("decode catalog response: %w", err)
	}
	if it.ID == "" {
		it.ID = itemID
	}

	c.cache.Add(itemID, it)
	return it, nil
}
