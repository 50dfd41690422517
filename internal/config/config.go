package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	AuthModeRemote = "remote"
	AuthModeJWT    = "jwt"

	VoteStrategyAtomic     = "atomic"
	VoteStrategyOptimistic = "optimistic"
)

type Config struct {
	Port         string
	DatabaseURL  string
	StoreDriver  string
	AutoMigrate  bool
	StoreTimeout time.Duration
	CORSOrigins  []string
	Auth         AuthConfig
	Votes        VoteConfig
}

// AuthConfig selects how bearer tokens are checked against the identity provider.
type AuthConfig struct {
	Mode        string
	SupabaseURL string
	SupabaseKey string
	JWTSecret   string
	JWTAudience string
	Timeout     time.Duration
}

// VoteConfig tunes the vote tally engine.
type VoteConfig struct {
	Strategy       string
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func Load() Config {
	jwtSecret := os.Getenv("SUPABASE_JWT_SECRET")
	authMode := AuthModeRemote
	if jwtSecret != "" {
		authMode = AuthModeJWT
	}

	return Config{
		Port:         envString("PORT", "8080"),
		DatabaseURL:  databaseURL(),
		StoreDriver:  strings.ToLower(envString("STORE_DRIVER", StoreDriverPostgres)),
		AutoMigrate:  envBool("DB_AUTO_MIGRATE", false),
		StoreTimeout: envDuration("STORE_TIMEOUT", 5*time.Second),
		CORSOrigins:  envList("CORS_ORIGINS", []string{"*"}),
		Auth: AuthConfig{
			Mode:        strings.ToLower(envString("AUTH_MODE", authMode)),
			SupabaseURL: strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
			SupabaseKey: os.Getenv("SUPABASE_KEY"),
			JWTSecret:   jwtSecret,
			JWTAudience: envString("SUPABASE_JWT_AUDIENCE", "authenticated"),
			Timeout:     envDuration("AUTH_TIMEOUT", 5*time.Second),
		},
		Votes: VoteConfig{
			Strategy:       strings.ToLower(envString("VOTE_STRATEGY", VoteStrategyAtomic)),
			MaxAttempts:    envInt("VOTE_MAX_ATTEMPTS", 5),
			InitialBackoff: envDuration("VOTE_INITIAL_BACKOFF", 10*time.Millisecond),
			MaxBackoff:     envDuration("VOTE_MAX_BACKOFF", 200*time.Millisecond),
		},
	}
}

// databaseURL prefers DATABASE_URL (the BaaS connection string) and falls back
// to the discrete DB_* variables.
func databaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		envString("DB_HOST", "localhost"),
		envString("DB_PORT", "5432"),
		envString("DB_USER", "postgres"),
		os.Getenv("DB_PASSWORD"),
		envString("DB_NAME", "postgres"),
		envString("DB_SSLMODE", "disable"),
	)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
