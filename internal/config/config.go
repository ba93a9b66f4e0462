// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration knobs for the HTTP server and the backing
// stores.
type Config struct {
	HTTPAddr        string
	MySQLDSN        string
	RedisAddr       string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	CacheTTL        time.Duration
	ShutdownTimeout time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		MySQLDSN:        getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/grocery?parseTime=true"),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		MaxOpenConns:    atoienv("MYSQL_MAX_OPEN_CONNS", 50),
		MaxIdleConns:    atoienv("MYSQL_MAX_IDLE_CONNS", 25),
		ConnMaxLifetime: durenvs("MYSQL_CONN_MAX_LIFETIME", 300),
		CacheTTL:        durenvs("CATALOG_CACHE_TTL", 60),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 5),
	}
}
