package rpc

import (
	"log/slog"
	"net/url"
	"os"
	"time"
)

// InitLogger 初始化结构化日志并设为 slog 默认 logger
// format 为 "text" 时使用文本格式, 其余情况输出 JSON
func InitLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var logger *slog.Logger
	if format == "text" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, opts))
	} else {
		// JSON 格式，便于日志收集系统处理
		logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}

	slog.SetDefault(logger)
	return logger
}

// LogAttemptFailed 记录单次尝试失败
func LogAttemptFailed(logger *slog.Logger, operation, host string, attempt, total int, err error) {
	logger.Warn("rpc_attempt_failed",
		slog.String("operation", operation),
		slog.String("host", maskURL(host)),
		slog.Int("attempt", attempt),
		slog.Int("hosts", total),
		slog.String("kind", KindOf(err).String()),
		slog.String("error", err.Error()),
	)
}

// LogHostPromoted 记录主机被提升到队首
func LogHostPromoted(logger *slog.Logger, operation, host string, fromIndex int) {
	logger.Info("rpc_host_promoted",
		slog.String("operation", operation),
		slog.String("host", maskURL(host)),
		slog.Int("from_index", fromIndex),
	)
}

// LogAllHostsFailed 记录所有主机均失败
func LogAllHostsFailed(logger *slog.Logger, operation string, attempts int, elapsed time.Duration, err error) {
	logger.Error("rpc_all_hosts_failed",
		slog.String("operation", operation),
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", elapsed),
		slog.String("last_error", err.Error()),
	)
}

// maskURL strips credentials, path and query so API keys never reach the logs.
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if len(raw) > 20 {
			return raw[:10] + "..." + raw[len(raw)-10:]
		}
		return raw
	}
	masked := u.Scheme + "://" + u.Host
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" {
		masked += "/..."
	}
	return masked
}
