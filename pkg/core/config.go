package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for a memoria client.
//
// It includes settings for:
//   - Embedding provider (vector generation and image captioning)
//   - Store (record persistence)
//   - Retrieval (bundle caps)
//   - Curator (decay and consolidation knobs)
//
// Example:
//
//	config := &core.Config{
//	    Embedder: core.EmbedderConfig{
//	        Provider:   "openai",
//	        APIKey:     "sk-...",
//	        Model:      "text-embedding-3-small",
//	        Dimensions: 1536,
//	    },
//	    Store: core.StoreConfig{
//	        Provider: "sqlite",
//	        Path:     "./memoria.db",
//	    },
//	}
type Config struct {
	// Embedder contains embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder"`

	// Store contains store backend configuration.
	Store StoreConfig `json:"store"`

	// Retrieval contains bundle size caps (optional, zero means defaults).
	Retrieval RetrievalConfig `json:"retrieval,omitempty"`

	// Curator contains curation knobs (optional, zero means defaults).
	Curator CuratorConfig `json:"curator,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
//
// Supported providers: openai, qwen.
type EmbedderConfig struct {
	// Provider is the embedding provider name (openai, qwen).
	Provider string `json:"provider"`

	// APIKey is the API key for the embedding provider.
	APIKey string `json:"api_key"`

	// Model is the embedding model name (e.g., "text-embedding-3-small").
	Model string `json:"model,omitempty"`

	// CaptionModel is the vision model used for image captions
	// (openai provider only, optional).
	CaptionModel string `json:"caption_model,omitempty"`

	// BaseURL is the base URL for the API (optional, uses provider default
	// if empty).
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the dimension of the embedding vectors (default 1536).
	Dimensions int `json:"dimensions,omitempty"`
}

// StoreConfig contains configuration for the record store.
//
// Supported providers: memory, sqlite, postgres, mysql.
type StoreConfig struct {
	// Provider is the store backend name (memory, sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// Path is the database file path (sqlite only).
	Path string `json:"path,omitempty"`

	// Table is the records table name (default "memories").
	Table string `json:"table,omitempty"`

	// Host, Port, User, Password, DBName configure the server-backed
	// providers (postgres, mysql).
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	DBName   string `json:"db_name,omitempty"`

	// SSLMode is the connection SSL mode (postgres only, default "disable").
	SSLMode string `json:"ssl_mode,omitempty"`
}

// RetrievalConfig contains bundle size caps.
type RetrievalConfig struct {
	// PrivateTopK is the private semantic cap (default 2).
	PrivateTopK int `json:"private_top_k,omitempty"`

	// SharedTopK is the shared semantic cap (default 4).
	SharedTopK int `json:"shared_top_k,omitempty"`

	// SharedRecent is the shared recency cap (default 3).
	SharedRecent int `json:"shared_recent,omitempty"`
}

// CuratorConfig contains curation knobs. Zero fields use the curator
// package defaults.
type CuratorConfig struct {
	// DecayRate is the forgetting-curve decay rate (default 0.1).
	DecayRate float64 `json:"decay_rate,omitempty"`

	// ArchiveThreshold is the decay score below which a record becomes an
	// archival candidate (default 0.1).
	ArchiveThreshold float64 `json:"archive_threshold,omitempty"`

	// RetentionFloorDays is the minimum age in days before archival
	// (default 30).
	RetentionFloorDays int `json:"retention_floor_days,omitempty"`

	// DuplicateThreshold is the consolidation similarity threshold
	// (default 0.92).
	DuplicateThreshold float64 `json:"duplicate_threshold,omitempty"`

	// HighSalience is the dominant-mood scalar that protects a record from
	// archival (default 0.8).
	HighSalience float64 `json:"high_salience,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - STORE_PROVIDER (memory, sqlite, postgres, mysql)
//   - SQLITE_PATH, SQLITE_TABLE
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_TABLE, POSTGRES_SSLMODE
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE,
//     MYSQL_TABLE
//   - EMBEDDING_PROVIDER, EMBEDDING_API_KEY, EMBEDDING_MODEL,
//     EMBEDDING_CAPTION_MODEL, EMBEDDING_BASE_URL, EMBEDDING_DIMENSIONS
//   - RETRIEVAL_PRIVATE_TOP_K, RETRIEVAL_SHARED_TOP_K,
//     RETRIEVAL_SHARED_RECENT
//   - CURATOR_DECAY_RATE, CURATOR_ARCHIVE_THRESHOLD,
//     CURATOR_RETENTION_FLOOR_DAYS, CURATOR_DUPLICATE_THRESHOLD,
//     CURATOR_HIGH_SALIENCE
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	config := &Config{
		Embedder: EmbedderConfig{
			Provider:     getEnvOrDefault("EMBEDDING_PROVIDER", "openai"),
			APIKey:       os.Getenv("EMBEDDING_API_KEY"),
			Model:        os.Getenv("EMBEDDING_MODEL"),
			CaptionModel: os.Getenv("EMBEDDING_CAPTION_MODEL"),
			BaseURL:      os.Getenv("EMBEDDING_BASE_URL"),
			Dimensions:   getEnvInt("EMBEDDING_DIMENSIONS", 1536),
		},
		Store: StoreConfig{
			Provider: getEnvOrDefault("STORE_PROVIDER", "sqlite"),
		},
		Retrieval: RetrievalConfig{
			PrivateTopK:  getEnvInt("RETRIEVAL_PRIVATE_TOP_K", 0),
			SharedTopK:   getEnvInt("RETRIEVAL_SHARED_TOP_K", 0),
			SharedRecent: getEnvInt("RETRIEVAL_SHARED_RECENT", 0),
		},
		Curator: CuratorConfig{
			DecayRate:          getEnvFloat("CURATOR_DECAY_RATE", 0),
			ArchiveThreshold:   getEnvFloat("CURATOR_ARCHIVE_THRESHOLD", 0),
			RetentionFloorDays: getEnvInt("CURATOR_RETENTION_FLOOR_DAYS", 0),
			DuplicateThreshold: getEnvFloat("CURATOR_DUPLICATE_THRESHOLD", 0),
			HighSalience:       getEnvFloat("CURATOR_HIGH_SALIENCE", 0),
		},
	}

	switch config.Store.Provider {
	case "sqlite":
		config.Store.Path = getEnvOrDefault("SQLITE_PATH", "./memoria.db")
		config.Store.Table = getEnvOrDefault("SQLITE_TABLE", "memories")
	case "postgres":
		config.Store.Host = getEnvOrDefault("POSTGRES_HOST", "localhost")
		config.Store.Port = getEnvInt("POSTGRES_PORT", 5432)
		config.Store.User = getEnvOrDefault("POSTGRES_USER", "postgres")
		config.Store.Password = os.Getenv("POSTGRES_PASSWORD")
		config.Store.DBName = getEnvOrDefault("POSTGRES_DATABASE", "memoria")
		config.Store.Table = getEnvOrDefault("POSTGRES_TABLE", "memories")
		config.Store.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", "disable")
	case "mysql":
		config.Store.Host = getEnvOrDefault("MYSQL_HOST", "127.0.0.1")
		config.Store.Port = getEnvInt("MYSQL_PORT", 3306)
		config.Store.User = getEnvOrDefault("MYSQL_USER", "root")
		config.Store.Password = os.Getenv("MYSQL_PASSWORD")
		config.Store.DBName = getEnvOrDefault("MYSQL_DATABASE", "memoria")
		config.Store.Table = getEnvOrDefault("MYSQL_TABLE", "memories")
	}

	return config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// Checks that all required fields are set:
//   - Embedder provider must be specified
//   - Store provider must be specified
//   - Embedding dimensions must be positive
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.Embedder.Provider == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.Store.Provider == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.Embedder.Dimensions < 0 {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable or returns the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
