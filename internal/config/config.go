package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Accrual boundary values for VESTING_ACCRUAL. They decide whether a vesting
// period's allotment unlocks at the start or at the end of the period.
const (
	AccrualPeriodEnd   = "period_end"
	AccrualPeriodStart = "period_start"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Operator endpoints (registry mutation, token mint, emission updates)
	OperatorAPIKey string

	// Signature verification
	ChainID int64

	// Vesting
	PeriodSeconds   int64
	AccrualBoundary string

	// Staking
	CooldownSeconds   int64
	UnstakeWindow     int64
	EmissionPerSecond int64

	// Well-known addresses used to seed the registry
	TreasuryAddress      string
	EscrowAddress        string
	StakingVaultAddress  string
	NFTContractAddress   string
	BackendSignerAddress string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "tokenomics"),
		DBPassword: getEnv("DB_PASSWORD", "tokenomics"),
		DBName:     getEnv("DB_NAME", "tokenomics"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		OperatorAPIKey: getEnv("OPERATOR_API_KEY", ""),

		ChainID: getEnvInt64("CHAIN_ID", 1),

		PeriodSeconds:   getEnvInt64("VESTING_PERIOD_SECONDS", 86400),
		AccrualBoundary: getEnv("VESTING_ACCRUAL", AccrualPeriodEnd),

		// Cooldown defaults to 7 days, the redemption window to 2 days.
		CooldownSeconds:   getEnvInt64("STAKING_COOLDOWN_SECONDS", 604800),
		UnstakeWindow:     getEnvInt64("STAKING_UNSTAKE_WINDOW", 172800),
		EmissionPerSecond: getEnvInt64("STAKING_EMISSION_PER_SECOND", 1),

		TreasuryAddress:      getEnv("TREASURY_ADDRESS", ""),
		EscrowAddress:        getEnv("ESCROW_ADDRESS", ""),
		StakingVaultAddress:  getEnv("STAKING_VAULT_ADDRESS", ""),
		NFTContractAddress:   getEnv("NFT_CONTRACT_ADDRESS", ""),
		BackendSignerAddress: getEnv("BACKEND_SIGNER_ADDRESS", ""),
	}

	if config.AccrualBoundary != AccrualPeriodEnd && config.AccrualBoundary != AccrualPeriodStart {
		log.Printf("Warning: invalid VESTING_ACCRUAL value '%s', falling back to %s\n", config.AccrualBoundary, AccrualPeriodEnd)
		config.AccrualBoundary = AccrualPeriodEnd
	}

	// Parse JWT expiration duration
	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt64 retrieves an integer environment variable or returns a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
