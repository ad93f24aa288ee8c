// Package config loads the watcher's runtime configuration from the
// environment, with an optional .env file for local runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DexConfig describes one on-chain exchange to watch. Addresses stay as hex
// strings here; the wiring layer parses them.
type DexConfig struct {
	Name         string
	Factory      string
	Token        string
	Quote        string
	EventVariant string // "standard" or "extended"
	BuyLink      string
}

type Config struct {
	// Telegram
	BotToken     string
	ChatID       int64
	LevelsChatID int64
	AdminChatID  int64

	// Collection
	CollectionName  string
	Ticker          string
	TokenTicker     string
	QuoteTicker     string
	ImageBase       string
	ImagesCID       string
	ShowRarityScore bool

	// Marketplace feeds
	MarketBaseURL        string
	ListedLimit          int
	SalesLookbackMinutes int
	SalesLimit           int
	TokenBigBuyThreshold float64

	// Levels and rarity
	LevelsURL       string
	LevelsKeyPrefix string
	LevelsTTL       time.Duration
	LevelsInterval  time.Duration
	MaxLevelUpdates int
	RarityPath      string

	// Chain
	RPCURL             string
	ScanSpan           uint64
	DexBigBuyThreshold string // decimal string, quote units
	Dexes              []DexConfig

	// Engine
	DataDir       string
	StatePath     string
	TickSchedule  string // cron expression
	DedupeTTL     time.Duration
	DedupeMaxKeys int
	MetricsAddr   string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:     os.Getenv("BOT_TOKEN"),
		ChatID:       getEnvInt64("CHAT_ID", 0),
		LevelsChatID: getEnvInt64("LEVELS_CHAT_ID", 0),
		AdminChatID:  getEnvInt64("ADMIN_CHAT_ID", 0),

		CollectionName:  getEnv("COLLECTION_NAME", "Bonkey"),
		Ticker:          getEnv("TICKER", "BONKEY"),
		TokenTicker:     getEnv("TOKEN_TICKER", "BONKEY"),
		QuoteTicker:     getEnv("QUOTE_TICKER", "WKAS"),
		ImageBase:       getEnv("IMAGE_BASE", ""),
		ImagesCID:       getEnv("IMAGES_CID", ""),
		ShowRarityScore: getEnvBool("SHOW_RARITY_SCORE", false),

		MarketBaseURL:        getEnv("MARKET_BASE_URL", ""),
		ListedLimit:          getEnvInt("LISTED_LIMIT", 50),
		SalesLookbackMinutes: getEnvInt("SALES_LOOKBACK_MINUTES", 10),
		SalesLimit:           getEnvInt("SALES_LIMIT", 50),
		TokenBigBuyThreshold: getEnvFloat("TOKEN_BIG_BUY_THRESHOLD", 0),

		LevelsURL:       getEnv("LEVELS_URL", ""),
		LevelsKeyPrefix: getEnv("LEVELS_KEY_PREFIX", "bonkey"),
		LevelsTTL:       getEnvDuration("LEVELS_TTL", 250*time.Second),
		LevelsInterval:  getEnvDuration("LEVELS_INTERVAL", 5*time.Minute),
		MaxLevelUpdates: getEnvInt("MAX_LEVEL_UPDATES", 10),
		RarityPath:      getEnv("RARITY_PATH", "rarity.json"),

		RPCURL:             os.Getenv("RPC_URL"),
		ScanSpan:           uint64(getEnvInt("SCAN_SPAN", 1500)),
		DexBigBuyThreshold: getEnv("DEX_BIG_BUY_THRESHOLD", "0"),

		DataDir:       getEnv("DATA_DIR", "data"),
		TickSchedule:  getEnv("TICK_SCHEDULE", "@every 60s"),
		DedupeTTL:     getEnvDuration("DEDUPE_TTL", 48*time.Hour),
		DedupeMaxKeys: getEnvInt("DEDUPE_MAX_KEYS", 5000),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
	}
	cfg.StatePath = getEnv("STATE_PATH", cfg.DataDir+"/state.json")

	dexes, err := loadDexes()
	if err != nil {
		return nil, err
	}
	cfg.Dexes = dexes

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("config: BOT_TOKEN is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("config: CHAT_ID is required")
	}
	return cfg, nil
}

// loadDexes reads DEX_LIST as a comma-separated list of names, then one env
// block per name: <NAME>_FACTORY, <NAME>_TOKEN, <NAME>_QUOTE,
// <NAME>_EVENT_VARIANT, <NAME>_BUY_LINK.
func loadDexes() ([]DexConfig, error) {
	list := strings.TrimSpace(os.Getenv("DEX_LIST"))
	if list == "" {
		return nil, nil
	}

	var out []DexConfig
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		prefix := strings.ToUpper(name) + "_"
		d := DexConfig{
			Name:         name,
			Factory:      os.Getenv(prefix + "FACTORY"),
			Token:        os.Getenv(prefix + "TOKEN"),
			Quote:        os.Getenv(prefix + "QUOTE"),
			EventVariant: getEnv(prefix+"EVENT_VARIANT", "standard"),
			BuyLink:      os.Getenv(prefix + "BUY_LINK"),
		}
		if d.Factory == "" || d.Token == "" || d.Quote == "" {
			return nil, fmt.Errorf("config: dex %q needs %sFACTORY, %sTOKEN and %sQUOTE", name, prefix, prefix, prefix)
		}
		out = append(out, d)
	}
	return out, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvInt64(key string, defaultVal int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
