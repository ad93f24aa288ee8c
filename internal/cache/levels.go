// Package cache holds the auxiliary metadata lookups: the rotating levels
// snapshot fetched from the game API and the local rarity table. Both are
// explicit objects with injected lifecycles, owned by the orchestrator and
// handed to the pollers that need them.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"kaspa-market-watch/internal/state"
)

// LevelChange is one observed level transition between two snapshots.
type LevelChange struct {
	TokenID  string
	OldLevel int
	NewLevel int
}

type levelsMeta struct {
	FetchedAt int64  `json:"fetchedAt"` // unix ms
	Source    string `json:"source"`
	Count     int    `json:"count"`
}

// LevelsCache maintains a rotating snapshot of per-token levels: the current
// fetch, the previous fetch (for diffing), and fetch metadata, each persisted
// atomically as its own file.
type LevelsCache struct {
	url        string
	keyPrefix  string // upstream keys look like "<prefix>-<tokenID>"
	ttl        time.Duration
	currPath   string
	prevPath   string
	metaPath   string
	httpClient *http.Client
	logger     *log.Logger

	mu   sync.Mutex
	meta levelsMeta
	curr map[string]int
}

// LevelsCacheOptions configures a LevelsCache.
type LevelsCacheOptions struct {
	URL       string
	KeyPrefix string        // default "bonkey"
	TTL       time.Duration // default 250s
	Dir       string        // snapshot directory
	Timeout   time.Duration // HTTP timeout, default 30s
	Logger    *log.Logger
}

// NewLevelsCache creates the cache and warms it from any snapshot files left
// by a previous run.
func NewLevelsCache(opts LevelsCacheOptions) *LevelsCache {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "bonkey"
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = 250 * time.Second
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	c := &LevelsCache{
		url:        opts.URL,
		keyPrefix:  prefix,
		ttl:        ttl,
		currPath:   filepath.Join(opts.Dir, "levels_curr.json"),
		prevPath:   filepath.Join(opts.Dir, "levels_prev.json"),
		metaPath:   filepath.Join(opts.Dir, "levels_meta.json"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		curr:       make(map[string]int),
	}
	state.LoadJSONFile(c.metaPath, &c.meta)
	state.LoadJSONFile(c.currPath, &c.curr)
	return c
}

// Level returns the cached level for tokenID.
func (c *LevelsCache) Level(tokenID string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lvl, ok := c.curr[tokenID]
	return lvl, ok
}

// EnsureFresh refreshes the snapshot when it is older than the TTL.
func (c *LevelsCache) EnsureFresh(ctx context.Context) error {
	c.mu.Lock()
	fetchedAt := c.meta.FetchedAt
	c.mu.Unlock()

	age := time.Now().UnixMilli() - fetchedAt
	if fetchedAt != 0 && age <= c.ttl.Milliseconds() {
		return nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches the levels payload and replaces the current snapshot.
func (c *LevelsCache) Refresh(ctx context.Context) error {
	levels, err := c.fetch(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := state.SaveJSONFile(c.currPath, levels); err != nil {
		return err
	}
	c.curr = levels
	c.meta = levelsMeta{FetchedAt: time.Now().UnixMilli(), Source: c.url, Count: len(levels)}
	return state.SaveJSONFile(c.metaPath, &c.meta)
}

// CompareAndRotate refreshes, diffs against the previous snapshot, then
// rotates current into previous. Only tokens present in both snapshots
// produce changes; a token's first appearance is not a level change.
func (c *LevelsCache) CompareAndRotate(ctx context.Context) ([]LevelChange, error) {
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev := make(map[string]int)
	state.LoadJSONFile(c.prevPath, &prev)

	var changes []LevelChange
	for tokenID, newLevel := range c.curr {
		oldLevel, ok := prev[tokenID]
		if !ok || oldLevel == newLevel {
			continue
		}
		changes = append(changes, LevelChange{TokenID: tokenID, OldLevel: oldLevel, NewLevel: newLevel})
	}

	if err := state.SaveJSONFile(c.prevPath, c.curr); err != nil {
		return changes, err
	}
	return changes, nil
}

func (c *LevelsCache) fetch(ctx context.Context) (map[string]int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build levels request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch levels: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch levels: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read levels response: %w", err)
	}

	var payload struct {
		Levels map[string]struct {
			Level *float64 `json:"level"`
		} `json:"levels"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode levels response: %w", err)
	}
	if payload.Levels == nil {
		return nil, fmt.Errorf("levels payload missing levels object")
	}

	keyRe := regexp.MustCompile(`^` + regexp.QuoteMeta(c.keyPrefix) + `-(\d+)$`)
	out := make(map[string]int, len(payload.Levels))
	for key, v := range payload.Levels {
		m := keyRe.FindStringSubmatch(key)
		if m == nil || v.Level == nil {
			continue
		}
		out[m[1]] = int(*v.Level)
	}
	return out, nil
}
