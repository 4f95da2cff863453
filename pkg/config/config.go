package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	Environment string
	StoreDriver string

	FirebaseProject            string
	FirebaseServiceAccountJSON string
	FirebaseServiceAccountPath string

	AuthProvider string
	JWTSecret    string

	MongoURI            string
	MongoDatabase       string
	MongoConnectTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	UserCacheTTL  time.Duration

	NATSURL string

	CORSOrigins []string

	WSOperationTimeout time.Duration
	WSSendBuffer       int
	HistoryLimit       int
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		StoreDriver: getEnv("STORE_DRIVER", "firestore"),

		FirebaseProject:            getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", "./firebase-adminsdk.json"),

		AuthProvider: getEnv("AUTH_PROVIDER", "jwt"),
		JWTSecret:    getEnv("JWT_SECRET", "your-secret-key"),

		MongoURI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:       getEnv("MONGO_DATABASE", "flatmate"),
		MongoConnectTimeout: getEnvAsDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		UserCacheTTL:  getEnvAsDuration("USER_CACHE_TTL", 10*time.Minute),

		NATSURL: getEnv("NATS_URL", ""),

		CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:3001"}),

		WSOperationTimeout: getEnvAsDuration("WS_OPERATION_TIMEOUT", 5*time.Second),
		WSSendBuffer:       getEnvAsInt("WS_SEND_BUFFER", 256),
		HistoryLimit:       getEnvAsInt("HISTORY_LIMIT", 500),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("5s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
