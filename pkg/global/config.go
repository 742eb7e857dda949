package global

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

type Config struct {
	Env      string
	Port     string
	LogLevel string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string

	RedisAddress  string
	RedisPassword string
	CacheTTL      time.Duration

	PublicBaseURL string
	StaticDir     string
	UploadDir     string
	CORSOrigins   []string

	OTLPEndpoint string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
}

// LoadConfig reads .env when present and then the process environment.
func LoadConfig() Config {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			logrus.WithError(err).Warn("could not load .env file")
		}
	}

	return Config{
		Env:      GetEnvOrDefault("ENV", "development"),
		Port:     GetEnvOrDefault("PORT", "8080"),
		LogLevel: GetEnvOrDefault("LOG_LEVEL", "info"),

		StoreDriver:   GetEnvOrDefault("STORE_DRIVER", StoreDriverMongo),
		MongoURI:      GetEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: GetEnvOrDefault("MONGODB_DATABASE", "ecommerce"),

		RedisAddress:  os.Getenv("REDIS_ADDRESS"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CacheTTL:      time.Duration(GetEnvIntOrDefault("CACHE_TTL_SECONDS", 86400)) * time.Second,

		PublicBaseURL: GetEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"),
		StaticDir:     GetEnvOrDefault("STATIC_DIR", "public"),
		UploadDir:     GetEnvOrDefault("UPLOAD_DIR", "public/uploads"),
		CORSOrigins:   GetEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   GetEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}
