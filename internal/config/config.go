// Package config loads terminal and backend settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_pos/internal/domain"
)

// Terminal configures the operator terminal.
type Terminal struct {
	BackendURL         string
	Context            domain.OperationalContext
	BackendTimeout     time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
	RedisAddr          string
	ProductCacheTTL    time.Duration
	MetricsAddr        string
	LogLevel           string
	LogFile            string
	SendLineQuantity   bool
}

// Backend configures the development backend.
type Backend struct {
	HTTPPort           string
	DBPath             string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	CORSOrigins        []string
	LogLevel           string
}

func LoadTerminal() *Terminal {
	return &Terminal{
		BackendURL: strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8000"), "/"),
		Context: domain.OperationalContext{
			EmpCode:   getEnv("EMP_CD", "A001"),
			StoreCode: getEnv("STORE_CD", "00001"),
			PosNo:     getEnv("POS_NO", "001"),
		},
		BackendTimeout:     getDuration("BACKEND_TIMEOUT", 10*time.Second),
		BreakerMaxFailures: uint32(getInt("BREAKER_MAX_FAILURES", 5)),
		BreakerOpenTimeout: getDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		ProductCacheTTL:    getDuration("PRODUCT_CACHE_TTL", 5*time.Minute),
		MetricsAddr:        getEnv("METRICS_ADDR", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", "pos-terminal.log"),
		SendLineQuantity:   getBool("SEND_LINE_QUANTITY", false),
	}
}

func LoadBackend() *Backend {
	return &Backend{
		HTTPPort:           getEnv("HTTP_PORT", "8000"),
		DBPath:             getEnv("DB_PATH", "pos.db"),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: int64(getInt("MAX_REQUEST_BODY_SIZE", 1<<20)), // 1MB
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
