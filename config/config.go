package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	JWT       JWTConfig
	Firebase  FirebaseConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
	Audit     AuditConfig
	Geo       GeoConfig
	Forms     FormsConfig
	Session   SessionConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
}

type JWTConfig struct {
	Secret                 string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

// FirebaseConfig selects and configures the document store.
// StoreBackend is "firestore" or "memory".
type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string
	StoreBackend    string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Requests      int
	Window        time.Duration
	LoginAttempts int
	LoginWindow   time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type AuditConfig struct {
	Enabled      bool
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
}

// GeoConfig configures the IP geolocation lookup. URL may contain an {ip} placeholder.
type GeoConfig struct {
	Enabled bool
	URL     string
	Timeout time.Duration
}

type FormsConfig struct {
	DefaultLayout string
	DraftTTL      time.Duration
	MaxDrafts     int
}

type SessionConfig struct {
	CookieName      string
	ProfileCacheTTL time.Duration
	ProfileCacheMax int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Host:        getEnv("HOST", "0.0.0.0"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", "dev-secret-key"),
			Expiration:             parseDuration(getEnv("JWT_EXPIRATION", "30m"), 30*time.Minute),
			RefreshTokenExpiration: parseDuration(getEnv("REFRESH_TOKEN_EXPIRATION", "168h"), 7*24*time.Hour),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", "litoralcitrus"),
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./serviceAccountKey.json"),
			StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", "firestore")),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		RateLimit: RateLimitConfig{
			Requests:      parseInt(getEnv("RATE_LIMIT_REQUESTS", "100"), 100),
			Window:        parseDuration(getEnv("RATE_LIMIT_WINDOW", "60"), 60*time.Second),
			LoginAttempts: parseInt(getEnv("LOGIN_MAX_ATTEMPTS", "5"), 5),
			LoginWindow:   parseDuration(getEnv("LOGIN_WINDOW", "15m"), 15*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Audit: AuditConfig{
			Enabled:      parseBool(getEnv("AUDIT_ENABLED", "true"), true),
			Workers:      parseInt(getEnv("AUDIT_WORKERS", "2"), 2),
			QueueSize:    parseInt(getEnv("AUDIT_QUEUE_SIZE", "256"), 256),
			WriteTimeout: parseDuration(getEnv("AUDIT_WRITE_TIMEOUT", "10s"), 10*time.Second),
		},
		Geo: GeoConfig{
			Enabled: parseBool(getEnv("GEO_ENABLED", "true"), true),
			URL:     getEnv("GEO_API_URL", "https://ipapi.co/{ip}/json/"),
			Timeout: parseDuration(getEnv("GEO_TIMEOUT", "3s"), 3*time.Second),
		},
		Forms: FormsConfig{
			DefaultLayout: getEnv("FORM_LAYOUT", "single"),
			DraftTTL:      parseDuration(getEnv("DRAFT_TTL", "12h"), 12*time.Hour),
			MaxDrafts:     parseInt(getEnv("MAX_DRAFTS", "1000"), 1000),
		},
		Session: SessionConfig{
			CookieName:      getEnv("SESSION_COOKIE", "lc_session"),
			ProfileCacheTTL: parseDuration(getEnv("PROFILE_CACHE_TTL", "30s"), 30*time.Second),
			ProfileCacheMax: parseInt(getEnv("PROFILE_CACHE_SIZE", "512"), 512),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultValue
}

func parseBool(s string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	// bare numbers are seconds
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}

func parseStringSlice(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// UsesFirestore reports whether the Firestore backend is selected.
func (c *Config) UsesFirestore() bool {
	return c.Firebase.StoreBackend == "firestore"
}

// Validate reports every fatal configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "dev-secret-key" && c.IsProduction() {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	switch c.Firebase.StoreBackend {
	case "firestore":
		if c.Firebase.ProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID must be set"))
		}
		if c.Firebase.CredentialsPath != "" {
			if _, err := os.Stat(c.Firebase.CredentialsPath); os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("firebase credentials file not found: %s", c.Firebase.CredentialsPath))
			}
		}
	case "memory":
		if c.IsProduction() {
			errs = append(errs, errors.New("STORE_BACKEND=memory is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Firebase.StoreBackend))
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}
	if c.RateLimit.LoginAttempts <= 0 || c.RateLimit.LoginWindow <= 0 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS and LOGIN_WINDOW must be positive"))
	}
	if c.Audit.Enabled && (c.Audit.Workers <= 0 || c.Audit.QueueSize <= 0) {
		errs = append(errs, errors.New("AUDIT_WORKERS and AUDIT_QUEUE_SIZE must be positive"))
	}
	if c.Geo.Enabled && c.Geo.URL == "" {
		errs = append(errs, errors.New("GEO_API_URL must be set when geolocation is enabled"))
	}
	if c.Forms.MaxDrafts <= 0 {
		errs = append(errs, errors.New("MAX_DRAFTS must be positive"))
	}
	return errors.Join(errs...)
}
