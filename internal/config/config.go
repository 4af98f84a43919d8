package config

import (
	"fmt"
	"math"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/core-coin/go-core/v2/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/core-coin/tokensale/internal/models"
	"github.com/core-coin/tokensale/pkg/validation"
)

type Config struct {
	Development bool
	// API configuration
	APIPort int

	// Blockchain configuration
	Chain                string
	Network              string
	NetworkID            *big.Int
	BlockchainServiceURL string
	// DeployerPrivateKey signs transactions on ethereum; core deploys from node accounts.
	DeployerPrivateKey string
	DeployGasLimit     uint64
	GasFeeCap          *big.Int
	GasTipCap          *big.Int
	ReceiptTimeout     time.Duration

	// Artifacts configuration
	ArtifactsDir   string
	WriteArtifacts bool

	// Sale configuration
	WalletAddress   string
	TokenName       string
	TokenSymbol     string
	TokenDecimals   uint8
	SaleRate        decimal.Decimal
	SaleTotalTokens *big.Int
	SaleStartOffset time.Duration
	SaleDuration    time.Duration

	// Registry (Postgres) configuration
	RegistryEnabled  bool
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	LockTTL          time.Duration

	// Notification configuration
	TelegramBotToken string
	TelegramChatID   string
	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPassword     string
	SMTPSender       string
	ReportEmail      string

	// Well-known configuration
	WellKnownURL         string
	SymbolPreflight      bool
	AllowDuplicateSymbol bool
}

// GetNetworkName returns the network name for well-known API based on NetworkID
// NetworkID 1 = xcb (mainnet), NetworkID 3 = xab (devin testnet)
func (c *Config) GetNetworkName() string {
	if c.NetworkID.Cmp(big.NewInt(1)) == 0 {
		return "xcb" // Mainnet
	}
	// Default to xab (testnet) for every other network
	return "xab"
}

// SaleConfig returns the parameters threaded into the sale contracts.
func (c *Config) SaleConfig() *models.SaleConfig {
	return &models.SaleConfig{
		Name:               c.TokenName,
		Symbol:             c.TokenSymbol,
		Decimals:           c.TokenDecimals,
		Rate:               c.SaleRate,
		TotalTokensForSale: c.SaleTotalTokens,
		StartOffset:        c.SaleStartOffset,
		Duration:           c.SaleDuration,
		Wallet:             c.WalletAddress,
	}
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	defaults := models.DefaultSaleConfig()

	cfg := &Config{
		Development: getEnvAsBool("DEVELOPMENT", false),
		APIPort:     getEnvAsInt("API_PORT", 6532),

		Chain:                getEnv("CHAIN", validation.ChainCore),
		Network:              getEnv("NETWORK", "development"),
		NetworkID:            getEnvAsBigInt("NETWORK_ID", big.NewInt(3)), // Devin testnet
		BlockchainServiceURL: getEnv("BLOCKCHAIN_SERVICE_URL", "http://localhost:8545"),
		DeployerPrivateKey:   getEnv("DEPLOYER_PRIVATE_KEY", ""),
		DeployGasLimit:       uint64(getEnvAsInt("DEPLOY_GAS_LIMIT", 6_000_000)),
		GasFeeCap:            getEnvAsBigInt("GAS_FEE_CAP", big.NewInt(2_000_000_000)),
		GasTipCap:            getEnvAsBigInt("GAS_TIP_CAP", big.NewInt(1_000_000_000)),
		ReceiptTimeout:       getEnvAsDuration("RECEIPT_TIMEOUT", 5*time.Minute),

		ArtifactsDir:   getEnv("ARTIFACTS_DIR", "build/contracts"),
		WriteArtifacts: getEnvAsBool("WRITE_ARTIFACTS", true),

		WalletAddress: getEnv("WALLET_ADDRESS", ""),
		TokenName:     getEnv("TOKEN_NAME", defaults.Name),
		TokenSymbol:   getEnv("TOKEN_SYMBOL", defaults.Symbol),

		RegistryEnabled:  getEnvAsBool("REGISTRY_ENABLED", true),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:       getEnv("POSTGRES_DB", "tokensale"),
		LockTTL:          getEnvAsDuration("LOCK_TTL", 30*time.Minute),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:         getEnv("SMTP_USER", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		SMTPSender:       getEnv("SMTP_SENDER", ""),
		ReportEmail:      getEnv("REPORT_EMAIL", ""),

		WellKnownURL:         getEnv("WELL_KNOWN_URL", "https://coreblockchain.net"),
		SymbolPreflight:      getEnvAsBool("SYMBOL_PREFLIGHT", false),
		AllowDuplicateSymbol: getEnvAsBool("ALLOW_DUPLICATE_SYMBOL", false),
	}

	if err := cfg.loadSaleParameters(defaults); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSaleParameters reads the numeric sale parameters. A set value that does not parse is an error.
func (c *Config) loadSaleParameters(defaults *models.SaleConfig) error {
	decimals, err := parseEnvAsInt("TOKEN_DECIMALS", int(defaults.Decimals))
	if err != nil {
		return err
	}
	if decimals < 0 || decimals > math.MaxUint8 {
		return fmt.Errorf("TOKEN_DECIMALS must be between 0 and %d, got %d", math.MaxUint8, decimals)
	}
	c.TokenDecimals = uint8(decimals)

	if c.SaleRate, err = parseEnvAsDecimal("SALE_RATE", defaults.Rate); err != nil {
		return err
	}
	if c.SaleTotalTokens, err = parseEnvAsBigInt("SALE_TOTAL_TOKENS", defaults.TotalTokensForSale); err != nil {
		return err
	}
	if c.SaleStartOffset, err = parseEnvAsDuration("SALE_START_OFFSET", defaults.StartOffset); err != nil {
		return err
	}

	days, err := parseEnvAsInt("SALE_DURATION_DAYS", int(defaults.Duration/(models.DayInSecs*time.Second)))
	if err != nil {
		return err
	}
	if days <= 0 {
		return fmt.Errorf("SALE_DURATION_DAYS must be positive, got %d", days)
	}
	c.SaleDuration = time.Duration(days) * models.DayInSecs * time.Second
	return nil
}

// Finalize applies process-wide settings derived from the configuration and validates it.
// It must run after CLI flags have been applied.
func (c *Config) Finalize() error {
	if c.Chain == validation.ChainCore && c.NetworkID != nil {
		// Required before any core address is parsed
		common.DefaultNetworkID = common.NetworkID(c.NetworkID.Int64())
	}
	return c.Validate()
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if _, err := validation.AddressHexLength(c.Chain); err != nil {
		return fmt.Errorf("invalid CHAIN: %w", err)
	}

	if c.Network == "" {
		return fmt.Errorf("NETWORK is required")
	}

	if c.NetworkID == nil || c.NetworkID.Sign() <= 0 {
		return fmt.Errorf("NETWORK_ID must be positive")
	}

	if c.BlockchainServiceURL == "" {
		return fmt.Errorf("BLOCKCHAIN_SERVICE_URL is required")
	}

	if c.Chain == validation.ChainEthereum {
		if c.DeployerPrivateKey == "" {
			return fmt.Errorf("DEPLOYER_PRIVATE_KEY is required on ethereum")
		}
		if c.WalletAddress == "" {
			return fmt.Errorf("WALLET_ADDRESS is required on ethereum")
		}
	}

	if c.WalletAddress != "" {
		if err := validation.ValidateAddress(c.Chain, c.WalletAddress); err != nil {
			return fmt.Errorf("invalid WALLET_ADDRESS format: %w", err)
		}
	}

	if c.ArtifactsDir == "" {
		return fmt.Errorf("ARTIFACTS_DIR is required")
	}

	if c.DeployGasLimit == 0 {
		return fmt.Errorf("DEPLOY_GAS_LIMIT must be positive")
	}

	if err := c.SaleConfig().Validate(); err != nil {
		return fmt.Errorf("invalid sale configuration: %w", err)
	}

	if c.RegistryEnabled {
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required")
		}
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
	}

	if c.TelegramBotToken != "" && c.TelegramChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	if c.ReportEmail != "" && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required when REPORT_EMAIL is set")
	}

	if c.SymbolPreflight && c.WellKnownURL == "" {
		return fmt.Errorf("WELL_KNOWN_URL is required")
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBigInt(name string, defaultValue *big.Int) *big.Int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, ok := new(big.Int).SetString(valueStr, 10); ok {
			return value
		}
	}
	return defaultValue
}

func parseEnvAsInt(name string, defaultValue int) (int, error) {
	valueStr, exists := os.LookupEnv(name)
	if !exists {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, valueStr, err)
	}
	return value, nil
}

func parseEnvAsBigInt(name string, defaultValue *big.Int) (*big.Int, error) {
	valueStr, exists := os.LookupEnv(name)
	if !exists {
		return defaultValue, nil
	}
	value, ok := new(big.Int).SetString(valueStr, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s %q: not a base-10 integer", name, valueStr)
	}
	return value, nil
}

func parseEnvAsDecimal(name string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	valueStr, exists := os.LookupEnv(name)
	if !exists {
		return defaultValue, nil
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q: %w", name, valueStr, err)
	}
	return value, nil
}

func parseEnvAsDuration(name string, defaultValue time.Duration) (time.Duration, error) {
	valueStr, exists := os.LookupEnv(name)
	if !exists {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, valueStr, err)
	}
	return value, nil
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
