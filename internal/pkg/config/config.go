package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// minProductionSecret is the HS256 key size.
const minProductionSecret = 32

type Config struct {
	Port        string   `env:"PORT,      default=8080"`
	Env         string   `env:"ENV,       default=development"`
	LogLevel    string   `env:"LOG_LEVEL, default=info"`
	LogPretty   bool     `env:"LOG_PRETTY, default=false"`
	CORSOrigins []string `env:"CORS_ORIGINS"`

	// TrustedProxies lists CIDRs of reverse proxies allowed to set
	// X-Forwarded-For. Empty means the socket peer is the client.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	Auth      AuthConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Bootstrap BootstrapConfig
	Audit     AuditConfig
}

type AuthConfig struct {
	JWTSecret       string        `env:"JWT_SECRET, required"`
	TokenTTL        time.Duration `env:"TOKEN_TTL,  default=24h"`
	BcryptCost      int           `env:"BCRYPT_COST, default=10"`
	RefreshIdentity bool          `env:"AUTH_REFRESH_IDENTITY, default=false"`
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=pharmacy_backoffice"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type RateLimitConfig struct {
	Enabled bool          `env:"AUTH_RATE_LIMIT_ENABLED, default=true"`
	Limit   int           `env:"AUTH_RATE_LIMIT,         default=20"`
	Window  time.Duration `env:"AUTH_RATE_WINDOW,        default=1m"`
}

// BootstrapConfig seeds the first ADMIN account. Nothing is created while
// Password is empty.
type BootstrapConfig struct {
	Username string `env:"BOOTSTRAP_ADMIN_USERNAME,  default=admin"`
	Email    string `env:"BOOTSTRAP_ADMIN_EMAIL,     default=admin@pharmacy.com"`
	Password string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
	FullName string `env:"BOOTSTRAP_ADMIN_FULL_NAME, default=System Administrator"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.TokenTTL < time.Second {
		return errors.New("TOKEN_TTL must be at least 1s")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0) {
		return errors.New("AUTH_RATE_LIMIT and AUTH_RATE_WINDOW must be positive")
	}
	if _, err := c.TrustedProxyNets(); err != nil {
		return err
	}
	if c.Audit.Workers <= 0 {
		return errors.New("AUDIT_WORKERS must be positive")
	}
	if c.IsProduction() {
		if c.LogPretty {
			return errors.New("LOG_PRETTY must be off in production")
		}
		if len(c.Auth.JWTSecret) < minProductionSecret {
			return fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProductionSecret)
		}
	}
	return nil
}

// TrustedProxyNets parses TRUSTED_PROXIES. A bare IP is taken as a single
// host.
func (c *Config) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: invalid address %q", raw)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			raw = fmt.Sprintf("%s/%d", raw, bits)
		}
		_, n, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// IsProduction reports whether ENV is production, which tightens validate.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
