package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	BaseURL  string
	Database DatabaseConfig
	JWT      JWTConfig
	License  LicenseConfig
	Credit   CreditConfig
	Notify   NotifyConfig
	Verify   VerifyConfig
	Cookie   CookieConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// LicenseConfig holds the locally-cached entitlement. The license server
// protocol is out of scope; only the validity result matters here.
type LicenseConfig struct {
	Key        string
	ExpiryDate time.Time
	SyncAmount int
}

// CreditConfig holds credit ledger policy
type CreditConfig struct {
	// GateSubmissions controls whether every declaration submission must
	// consume a credit. Verifications are always gated.
	GateSubmissions bool
	// AlertDays is the expiring-batch alert window
	AlertDays int
}

// NotifyConfig holds the outbound notification webhook
type NotifyConfig struct {
	WebhookURL string
	AuthToken  string
}

// VerifyConfig holds the external verification provider endpoints
type VerifyConfig struct {
	CIPCBaseURL        string
	CreditCheckBaseURL string
	APIKey             string
	TimeoutSeconds     int
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		BaseURL:  getEnv("BASE_URL", "http://localhost:3000"),
		Database: loadDatabaseConfig(appMode),
		JWT:      loadJWTConfig(appMode),
		License:  loadLicenseConfig(),
		Credit:   loadCreditConfig(),
		Notify:   loadNotifyConfig(),
		Verify:   loadVerifyConfig(),
		Cookie:   loadCookieConfig(appMode),
	}

	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "declarehub"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "15"))
	refreshDays, _ := strconv.Atoi(getEnv("REFRESH_TOKEN_DAYS", "7"))

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", "default_secret"),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", "default_refresh_secret"),
		AccessTokenMins:  accessMins,
		RefreshTokenDays: refreshDays,
	}
}

// loadLicenseConfig loads the cached license entitlement
func loadLicenseConfig() LicenseConfig {
	expiry := time.Now().AddDate(1, 0, 0)
	if raw := getEnv("LICENSE_EXPIRY", ""); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			expiry = parsed
		} else {
			log.Printf("⚠️ Invalid LICENSE_EXPIRY %q, using default", raw)
		}
	}

	syncAmount, _ := strconv.Atoi(getEnv("LICENSE_SYNC_CREDITS", "100"))

	return LicenseConfig{
		Key:        getEnv("LICENSE_KEY", ""),
		ExpiryDate: expiry,
		SyncAmount: syncAmount,
	}
}

// loadCreditConfig loads credit ledger policy
func loadCreditConfig() CreditConfig {
	gate, _ := strconv.ParseBool(getEnv("CREDIT_GATE_SUBMISSIONS", "true"))
	alertDays, _ := strconv.Atoi(getEnv("CREDIT_ALERT_DAYS", "30"))

	return CreditConfig{
		GateSubmissions: gate,
		AlertDays:       alertDays,
	}
}

// loadNotifyConfig loads the notification webhook config
func loadNotifyConfig() NotifyConfig {
	return NotifyConfig{
		WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		AuthToken:  getEnv("NOTIFY_AUTH_TOKEN", ""),
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	secure, _ := strconv.ParseBool(getEnv(prefix+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

// loadVerifyConfig loads the verification provider config
func loadVerifyConfig() VerifyConfig {
	timeout, _ := strconv.Atoi(getEnv("VERIFY_TIMEOUT_SECONDS", "30"))

	return VerifyConfig{
		CIPCBaseURL:        getEnv("CIPC_API_URL", ""),
		CreditCheckBaseURL: getEnv("CREDIT_CHECK_API_URL", ""),
		APIKey:             getEnv("VERIFY_API_KEY", ""),
		TimeoutSeconds:     timeout,
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://declare.example.com"
	}
	return origins
}

// DeclareLink builds the public form link for an access token
func (c *Config) DeclareLink(accessToken string) string {
	return c.BaseURL + "/declare/" + accessToken
}
