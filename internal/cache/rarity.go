package cache

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Rarity is the looked-up rarity metadata for one token. Missing fields stay
// nil/empty and render as unknown, never failing the pipeline.
type Rarity struct {
	Rank      *int
	Score     *float64
	Rewards   string
	Continent string
}

type rarityTrait struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

type rarityEntry struct {
	Rank       *int          `json:"rank"`
	Score      *float64      `json:"score"`
	Attributes []rarityTrait `json:"attributes"`
}

// RarityCache is a local rarity table loaded lazily once per process.
type RarityCache struct {
	path   string
	logger *log.Logger

	once    sync.Once
	entries map[string]rarityEntry
	loaded  bool
}

// NewRarityCache creates a cache over the rarity JSON file at path.
func NewRarityCache(path string, logger *log.Logger) *RarityCache {
	if logger == nil {
		logger = log.Default()
	}
	return &RarityCache{path: path, logger: logger}
}

// LoadOnce reads the rarity file on first call. A missing or corrupt file
// leaves the cache empty; every lookup then reports unknown rarity.
func (c *RarityCache) LoadOnce() {
	c.once.Do(func() {
		c.entries = make(map[string]rarityEntry)
		data, err := os.ReadFile(c.path)
		if err != nil {
			c.logger.Printf("rarity file %s unavailable: %v", c.path, err)
			return
		}
		if err := json.Unmarshal(data, &c.entries); err != nil {
			c.logger.Printf("rarity file %s unreadable: %v", c.path, err)
			c.entries = make(map[string]rarityEntry)
			return
		}
		c.loaded = true
	})
}

// Loaded reports whether the rarity table was read successfully.
func (c *RarityCache) Loaded() bool {
	c.LoadOnce()
	return c.loaded
}

// Rarity looks up rank, score and the rewards/continent traits for tokenID.
func (c *RarityCache) Rarity(tokenID string) Rarity {
	c.LoadOnce()

	entry, ok := c.entries[tokenID]
	if !ok {
		return Rarity{}
	}

	return Rarity{
		Rank:      entry.Rank,
		Score:     entry.Score,
		Rewards:   traitValue(entry.Attributes, "rewards"),
		Continent: traitValue(entry.Attributes, "continent"),
	}
}

// traitValue finds a trait by case-insensitive type name.
func traitValue(attrs []rarityTrait, wanted string) string {
	for _, a := range attrs {
		if strings.EqualFold(a.TraitType, wanted) {
			if a.Value == nil {
				return ""
			}
			return fmt.Sprintf("%v", a.Value)
		}
	}
	return ""
}
