package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"archivas-rpc-go/internal/rpc"
)

type Config struct {
	RPCURLs      []string      // 支持多个RPC URL, 顺序即故障转移顺序
	RPCURL       string        // 旧的单节点配置
	RPCTimeout   time.Duration // 单次尝试超时, 0 表示按读/写默认值
	RateLimitRPS float64
	EthPath      string
	ChainID      uint64 // 0 表示不校验网络
	LogLevel     string
	LogFormat    string

	// relay
	Port        int64
	Host        string
	UpstreamURL []string
	CacheDir    string
	AccessLog   string
}

func Load() *Config {
	_ = godotenv.Load() // .env文件是可选的

	return &Config{
		RPCURLs:      SplitList(getEnv("RPC_URLS", "")),
		RPCURL:       strings.TrimSpace(getEnv("RPC_URL", "")),
		RPCTimeout:   time.Duration(getEnvAsInt64("RPC_TIMEOUT_MS", 0)) * time.Millisecond,
		RateLimitRPS: getEnvAsFloat("RPC_RATE_LIMIT_RPS", 0),
		EthPath:      getEnv("RPC_ETH_PATH", rpc.DefaultEthPath),
		ChainID:      uint64(max(getEnvAsInt64("RPC_CHAIN_ID", 0), 0)),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),

		Port:        getEnvAsInt64("PORT", 9090),
		Host:        getEnv("RELAY_HOST", "127.0.0.1"),
		UpstreamURL: SplitList(getEnv("UPSTREAM_URL", "https://seed.archivas.ai")),
		CacheDir:    getEnv("CACHE_DIR", "/var/cache/nginx/archivas_rpc"),
		AccessLog:   getEnv("ACCESS_LOG", "/var/log/nginx/seed2-access.log"),
	}
}

// ClientConfig maps the RPC_* settings onto an rpc.Config.
// RPC_URLS takes precedence over the legacy RPC_URL.
func (c *Config) ClientConfig() rpc.Config {
	cfg := rpc.Config{
		BaseURL: c.RPCURL,
		Timeout: c.RPCTimeout,
	}
	if len(c.RPCURLs) > 0 {
		cfg.BaseURLs = c.RPCURLs
	}
	return cfg
}

// ClientOptions returns the rpc options derived from the environment.
func (c *Config) ClientOptions() []rpc.Option {
	return []rpc.Option{
		rpc.WithEthPath(c.EthPath),
		rpc.WithRateLimit(c.RateLimitRPS, 1),
	}
}

// SplitList 解析逗号分隔的列表, 去掉空白并丢弃空项
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		slog.Warn("config_invalid_value", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		slog.Warn("config_invalid_value", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}
	return value
}
