package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	AugmentorURL   string
	AugmentTimeout time.Duration

	LighthouseAPIKey  string
	LighthouseNodeURL string
	LighthouseGateway string
	UploadTimeout     time.Duration

	ChainRPCURL     string
	ChainID         int64
	PrivateKey      string
	ContractAddress string
	ChainTimeout    time.Duration
	RewardAmount    int64

	StoragePath    string
	StorageBaseURL string
	GeoIPDBPath    string

	CORSAllowedOrigins []string
	RateLimitPerMin    int
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		AugmentorURL:   os.Getenv("AUGMENTOR_URL"),
		AugmentTimeout: time.Second * time.Duration(getEnvInt("AUGMENT_TIMEOUT_SECONDS", 120)),

		LighthouseAPIKey:  os.Getenv("LIGHTHOUSE_API_KEY"),
		LighthouseNodeURL: getEnv("LIGHTHOUSE_NODE_URL", "https://node.lighthouse.storage"),
		LighthouseGateway: getEnv("LIGHTHOUSE_GATEWAY", "https://gateway.lighthouse.storage/ipfs"),
		UploadTimeout:     time.Second * time.Duration(getEnvInt("UPLOAD_TIMEOUT_SECONDS", 60)),

		ChainRPCURL:     getEnv("SEPOLIA_RPC_URL", "https://1rpc.io/sepolia"),
		ChainID:         int64(getEnvInt("CHAIN_ID", 11155111)),
		PrivateKey:      os.Getenv("PRIVATE_KEY"),
		ContractAddress: getEnv("DATACOIN_CONTRACT_ADDRESS", "0x33da15fdcaa8e7ca38ffe2048421d5e193100747"),
		ChainTimeout:    time.Second * time.Duration(getEnvInt("CHAIN_TIMEOUT_SECONDS", 90)),
		RewardAmount:    int64(getEnvInt("REWARD_AMOUNT", 1)),

		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", ""),
		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.AugmentorURL == "" {
		return nil, fmt.Errorf("AUGMENTOR_URL is required")
	}

	if cfg.StorageBaseURL == "" {
		cfg.StorageBaseURL = "http://localhost:" + cfg.Port + "/static"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
