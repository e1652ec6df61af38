package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogConfig   logger.LogConfig  `json:"log_config" yaml:"log_config"`
	Chunking    ChunkingConfig    `json:"chunking" yaml:"chunking"`
	Cache       CacheConfig       `json:"cache" yaml:"cache"`
	Processing  ProcessingConfig  `json:"processing" yaml:"processing"`
	Reduce      ReduceConfig      `json:"reduce" yaml:"reduce"`
	Search      SearchConfig      `json:"search" yaml:"search"`
	AI          AIConfig          `json:"ai" yaml:"ai"`
	Database    DatabaseConfig    `json:"database" yaml:"database"`
	VectorStore VectorStoreConfig `json:"vector_store" yaml:"vector_store"`
	Cleanup     CleanupConfig     `json:"cleanup" yaml:"cleanup"`
}

type ChunkingConfig struct {
	PagesPerChunk int `json:"pages_per_chunk" yaml:"pages_per_chunk"`
	MaxChunkSize  int `json:"max_chunk_size" yaml:"max_chunk_size"`
	OverlapSize   int `json:"overlap_size" yaml:"overlap_size"`
	MinChunkSize  int `json:"min_chunk_size" yaml:"min_chunk_size"`
}

type CacheConfig struct {
	// Type is one of none, blob, db, redis.
	Type       string          `json:"type" yaml:"type"`
	ExpiryDays int             `json:"expiry_days" yaml:"expiry_days"`
	LRUSize    int             `json:"lru_size" yaml:"lru_size"`
	FileStore  FileStoreConfig `json:"file_store" yaml:"file_store"`
	Redis      RedisConfig     `json:"redis" yaml:"redis"`
}

type FileStoreConfig struct {
	Type string   `json:"type" yaml:"type"`
	Dir  string   `json:"dir" yaml:"dir"`
	S3   S3Config `json:"s3" yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	SecretID  string `json:"secret_id" yaml:"secret_id"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	Region    string `json:"region" yaml:"region"`
	Prefix    string `json:"prefix" yaml:"prefix"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl"`
}

type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

type ProcessingConfig struct {
	Workers        int `json:"workers" yaml:"workers"`
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`
}

type ReduceConfig struct {
	BatchThreshold    int `json:"batch_threshold" yaml:"batch_threshold"`
	BatchSize         int `json:"batch_size" yaml:"batch_size"`
	FinalBudget       int `json:"final_budget" yaml:"final_budget"`
	BatchBudget       int `json:"batch_budget" yaml:"batch_budget"`
	FromBatchesBudget int `json:"from_batches_budget" yaml:"from_batches_budget"`
	FinalMaxTokens    int `json:"final_max_tokens" yaml:"final_max_tokens"`
	BatchMaxTokens    int `json:"batch_max_tokens" yaml:"batch_max_tokens"`
	ChunkMaxTokens    int `json:"chunk_max_tokens" yaml:"chunk_max_tokens"`
	ChunkContentLimit int `json:"chunk_content_limit" yaml:"chunk_content_limit"`
}

type SearchConfig struct {
	BM25K1            float64 `json:"bm25_k1" yaml:"bm25_k1"`
	BM25B             float64 `json:"bm25_b" yaml:"bm25_b"`
	BM25Weight        float64 `json:"bm25_weight" yaml:"bm25_weight"`
	VectorWeight      float64 `json:"vector_weight" yaml:"vector_weight"`
	TopK              int     `json:"top_k" yaml:"top_k"`
	CandidateLimit    int     `json:"candidate_limit" yaml:"candidate_limit"`
	RelevanceOverride *bool   `json:"relevance_override" yaml:"relevance_override"`
}

type AIConfig struct {
	Timeout       int                `json:"timeout" yaml:"timeout"`
	Retries       int                `json:"retries" yaml:"retries"`
	MaxEmbedChars int                `json:"max_embed_chars" yaml:"max_embed_chars"`
	Generators    []AIProviderConfig `json:"generators" yaml:"generators"`
	Embedders     []AIProviderConfig `json:"embedders" yaml:"embedders"`
	EmbedCache    EmbedCacheConfig   `json:"embed_cache" yaml:"embed_cache"`
}

type AIProviderConfig struct {
	Provider string                 `json:"provider" yaml:"provider"`
	Model    string                 `json:"model" yaml:"model"`
	Data     map[string]interface{} `json:"data" yaml:"data"`
}

type EmbedCacheConfig struct {
	LRUSize    int  `json:"lru_size" yaml:"lru_size"`
	TTLSeconds int  `json:"ttl_seconds" yaml:"ttl_seconds"`
	UseDB      bool `json:"use_db" yaml:"use_db"`
}

type DatabaseConfig struct {
	// Driver is postgres or sqlite. Empty disables persistence.
	Driver   string `json:"driver" yaml:"driver"`
	DSN      string `json:"dsn" yaml:"dsn"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"dbname" yaml:"dbname"`
	SSLMode  string `json:"sslmode" yaml:"sslmode"`
}

type VectorStoreConfig struct {
	// Type is memory or db.
	Type string `json:"type" yaml:"type"`
}

type CleanupConfig struct {
	Spec string `json:"spec" yaml:"spec"`
}

func (c *SearchConfig) RelevanceOverrideEnabled() bool {
	if c.RelevanceOverride == nil {
		return true
	}
	return *c.RelevanceOverride
}

// Load reads a json or yaml config file. ${VAR} references are expanded from
// the environment, after loading an optional .env next to the file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))
	return Parse(filepath.Ext(path), raw)
}

func Parse(ext string, raw []byte) (*Config, error) {
	expanded := []byte(os.ExpandEnv(string(raw)))
	var cfg Config
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	default:
		if err := json.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	ch := &cfg.Chunking
	if ch.PagesPerChunk == 0 {
		ch.PagesPerChunk = 10
	}
	if ch.MaxChunkSize == 0 {
		ch.MaxChunkSize = 4000
	}
	if ch.OverlapSize == 0 {
		ch.OverlapSize = 200
	}
	if ch.MinChunkSize == 0 {
		ch.MinChunkSize = 500
	}
	if cfg.Cache.Type == "" {
		cfg.Cache.Type = "none"
	}
	if cfg.Cache.ExpiryDays == 0 {
		cfg.Cache.ExpiryDays = 7
	}
	if cfg.Cache.FileStore.Type == "" {
		cfg.Cache.FileStore.Type = "local"
	}
	if cfg.Cache.FileStore.S3.Region == "" {
		cfg.Cache.FileStore.S3.Region = "us-east-1"
	}
	if cfg.Processing.TimeoutSeconds == 0 {
		cfg.Processing.TimeoutSeconds = 300
	}
	rd := &cfg.Reduce
	if rd.BatchThreshold == 0 {
		rd.BatchThreshold = 8
	}
	if rd.BatchSize == 0 {
		rd.BatchSize = 6
	}
	if rd.FinalBudget == 0 {
		rd.FinalBudget = 16000
	}
	if rd.BatchBudget == 0 {
		rd.BatchBudget = 6000
	}
	if rd.FromBatchesBudget == 0 {
		rd.FromBatchesBudget = 8000
	}
	if rd.FinalMaxTokens == 0 {
		rd.FinalMaxTokens = 2000
	}
	if rd.BatchMaxTokens == 0 {
		rd.BatchMaxTokens = 1500
	}
	if rd.ChunkMaxTokens == 0 {
		rd.ChunkMaxTokens = 1000
	}
	if rd.ChunkContentLimit == 0 {
		rd.ChunkContentLimit = 16000
	}
	sc := &cfg.Search
	if sc.BM25K1 == 0 {
		sc.BM25K1 = 1.2
	}
	if sc.BM25B == 0 {
		sc.BM25B = 0.75
	}
	if sc.BM25Weight == 0 && sc.VectorWeight == 0 {
		sc.BM25Weight = 0.5
		sc.VectorWeight = 0.5
	}
	if sc.TopK == 0 {
		sc.TopK = 5
	}
	if sc.CandidateLimit == 0 {
		sc.CandidateLimit = 50
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60
	}
	if cfg.AI.MaxEmbedChars == 0 {
		cfg.AI.MaxEmbedChars = 32000
	}
	if len(cfg.AI.Embedders) == 0 {
		cfg.AI.Embedders = []AIProviderConfig{{Provider: "hash"}}
	}
	if cfg.AI.EmbedCache.LRUSize == 0 {
		cfg.AI.EmbedCache.LRUSize = 1024
	}
	if cfg.AI.EmbedCache.TTLSeconds == 0 {
		cfg.AI.EmbedCache.TTLSeconds = 3600
	}
	if cfg.Database.Driver == dbDriverPostgres {
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 5432
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.Cleanup.Spec == "" {
		cfg.Cleanup.Spec = "0 3 * * *"
	}
}

const (
	dbDriverPostgres = "postgres"
	dbDriverSqlite   = "sqlite"
)

func validate(cfg *Config) error {
	ch := cfg.Chunking
	if ch.PagesPerChunk < 0 {
		return fmt.Errorf("chunking.pages_per_chunk must be > 0")
	}
	if ch.MaxChunkSize < 0 {
		return fmt.Errorf("chunking.max_chunk_size must be > 0")
	}
	if ch.OverlapSize < 0 || ch.OverlapSize >= ch.MaxChunkSize {
		return fmt.Errorf("chunking.overlap_size must be in [0, max_chunk_size)")
	}
	if ch.MinChunkSize < 0 || ch.MinChunkSize > ch.MaxChunkSize {
		return fmt.Errorf("chunking.min_chunk_size must be in [0, max_chunk_size]")
	}
	if cfg.Processing.Workers < 0 {
		return fmt.Errorf("processing.workers must be >= 0")
	}
	if cfg.Processing.TimeoutSeconds < 0 {
		return fmt.Errorf("processing.timeout_seconds must be > 0")
	}
	if cfg.Reduce.BatchThreshold < 1 {
		return fmt.Errorf("reduce.batch_threshold must be >= 1")
	}
	if cfg.Reduce.BatchSize < 2 {
		return fmt.Errorf("reduce.batch_size must be >= 2")
	}
	if cfg.Search.BM25Weight < 0 || cfg.Search.VectorWeight < 0 {
		return fmt.Errorf("search weights must be >= 0")
	}
	if cfg.Search.TopK < 0 {
		return fmt.Errorf("search.top_k must be > 0")
	}
	switch cfg.Database.Driver {
	case "":
	case dbDriverPostgres:
		if cfg.Database.DSN == "" && (cfg.Database.Host == "" || cfg.Database.DBName == "") {
			return fmt.Errorf("database.dsn or database.host/dbname is required for postgres")
		}
	case dbDriverSqlite:
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite")
	}
	switch cfg.Cache.Type {
	case "none":
	case "blob":
		switch cfg.Cache.FileStore.Type {
		case "local":
			if cfg.Cache.FileStore.Dir == "" {
				return fmt.Errorf("cache.file_store.dir is required for local store")
			}
		case "s3":
			s3c := cfg.Cache.FileStore.S3
			if s3c.Endpoint == "" || s3c.Bucket == "" || s3c.SecretID == "" || s3c.SecretKey == "" {
				return fmt.Errorf("cache.file_store.s3 endpoint/bucket/secret_id/secret_key are required for s3 store")
			}
		default:
			return fmt.Errorf("cache.file_store.type must be local or s3")
		}
	case "db":
		if cfg.Database.Driver == "" {
			return fmt.Errorf("cache.type db requires database.driver")
		}
	case "redis":
		if cfg.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for redis cache")
		}
	default:
		return fmt.Errorf("cache.type must be none, blob, db or redis")
	}
	switch cfg.VectorStore.Type {
	case "memory":
	case "db":
		if cfg.Database.Driver == "" {
			return fmt.Errorf("vector_store.type db requires database.driver")
		}
	default:
		return fmt.Errorf("vector_store.type must be memory or db")
	}
	if cfg.AI.EmbedCache.UseDB && cfg.Database.Driver == "" {
		return fmt.Errorf("ai.embed_cache.use_db requires database.driver")
	}
	for i, p := range append(append([]AIProviderConfig{}, cfg.AI.Generators...), cfg.AI.Embedders...) {
		if strings.TrimSpace(p.Provider) == "" {
			return fmt.Errorf("ai provider #%d: provider is required", i)
		}
	}
	return nil
}
