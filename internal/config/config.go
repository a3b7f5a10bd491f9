package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	LogLevel string

	StoreDriver   string // memory|sqlite|postgres|mongo
	DBDSN         string
	MongoURI      string
	MongoDatabase string

	RedisAddr     string // empty disables the test cache
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	EventLog     bool   // append events to the SQL event_log table
	SQSQueueName string // empty disables SQS publishing
	AWSRegion    string
	SiteID       string

	ChunkBudgetBytes int

	AuthSecret    string
	TokenTTL      time.Duration
	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

// Load reads variables from the given .env files, or ./.env when none are
// named, without overriding the environment. Missing files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	defLevel := "debug"
	if mode == ModeOnline {
		defLevel = "info"
	}
	return Config{
		Mode:     mode,
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),
		LogLevel: envOr("LOG_LEVEL", defLevel),

		StoreDriver:   envOr("STORE_DRIVER", "sqlite"),
		DBDSN:         envOr("DB_DSN", ""),
		MongoURI:      envOr("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: envOr("MONGO_DATABASE", "examprep"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		CacheTTL:      envDuration("CACHE_TTL", 10*time.Minute),

		EventLog:     envBool("EVENT_LOG", true),
		SQSQueueName: os.Getenv("SQS_QUEUE_NAME"),
		AWSRegion:    envOr("AWS_REGION", "ap-south-1"),
		SiteID:       envOr("SITE_ID", "local"),

		ChunkBudgetBytes: envInt("CHUNK_BUDGET_BYTES", exam.DefaultChunkBudget),

		AuthSecret:    envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		TokenTTL:      envDuration("TOKEN_TTL", 8*time.Hour),
		AdminUser:     envOr("ADMIN_USER", "admin"),
		AdminPassHash: os.Getenv("ADMIN_PASS_HASH"),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://cet.examprep.app"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),
	}
}

// CORSOrigins returns the allowed origins for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}
func envDuration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
