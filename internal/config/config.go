package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr               string
	SQLitePath             string
	JWTSecret              string
	AccessTokenTTL         time.Duration
	FileStoreDir           string
	MaxUploadBytes         int64
	MaxCanvasDim           int
	AllowedUploadMIME      []string
	CollabSendBuffer       int
	CollabWriteTimeout     time.Duration
	AuthFailAlertThreshold int
	AuthFailAlertWindow    time.Duration
	TrustedProxyCIDRs      []string
	AssistantEnabled       bool
	AssistantAdapter       AdapterConfig
	ChatHistoryLimit       int
}

type AdapterConfig struct {
	GRPCAddr       string
	BinaryPath     string
	RequestTimeout time.Duration
}

func Load() Config {
	accessTokenTTLSec := envInt("AUTH_ACCESS_TOKEN_TTL_SECONDS", 86400)
	authFailAlertThreshold := envInt("AUTH_FAIL_ALERT_THRESHOLD", 8)
	authFailAlertWindowSec := envInt("AUTH_FAIL_ALERT_WINDOW_SECONDS", 120)
	collabWriteTimeoutMS := envInt("COLLAB_WRITE_TIMEOUT_MS", 2000)
	assistantRequestTimeoutSec := envInt("ASSISTANT_REQUEST_TIMEOUT_SECONDS", 60)
	baseDir := executableDir()
	return Config{
		HTTPAddr:               env("PIXELCRAFT_HTTP_ADDR", ":8001"),
		SQLitePath:             envPath("PIXELCRAFT_SQLITE_PATH", filepath.Join(baseDir, "pixelcraft.db"), baseDir),
		JWTSecret:              env("JWT_SECRET", "pixelcraft-dev-secret"),
		AccessTokenTTL:         time.Duration(accessTokenTTLSec) * time.Second,
		FileStoreDir:           envPath("PIXELCRAFT_FILE_STORE_DIR", filepath.Join(baseDir, "files"), baseDir),
		MaxUploadBytes:         int64(envInt("PIXELCRAFT_MAX_UPLOAD_BYTES", 20*1024*1024)),
		MaxCanvasDim:           envInt("PIXELCRAFT_MAX_CANVAS_DIM", 16384),
		AllowedUploadMIME:      splitCSV(env("PIXELCRAFT_UPLOAD_MIME", "image/png,image/jpeg,image/gif,image/webp")),
		CollabSendBuffer:       envInt("COLLAB_SEND_BUFFER", 64),
		CollabWriteTimeout:     time.Duration(collabWriteTimeoutMS) * time.Millisecond,
		AuthFailAlertThreshold: authFailAlertThreshold,
		AuthFailAlertWindow:    time.Duration(authFailAlertWindowSec) * time.Second,
		TrustedProxyCIDRs:      splitCSV(env("TRUSTED_PROXY_CIDRS", "")),
		AssistantEnabled:       envBool("ASSISTANT_ENABLED", false),
		AssistantAdapter: AdapterConfig{
			GRPCAddr:       env("ASSISTANT_ADAPTER_ADDR", "127.0.0.1:50061"),
			BinaryPath:     envPath("ASSISTANT_ADAPTER_BIN", filepath.Join(baseDir, "assistant-adapter"), baseDir),
			RequestTimeout: time.Duration(assistantRequestTimeoutSec) * time.Second,
		},
		ChatHistoryLimit: envInt("CHAT_HISTORY_LIMIT", 50),
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(k string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(k)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func envPath(k, def, baseDir string) string {
	v := env(k, def)
	if v == "" {
		return v
	}
	if filepath.IsAbs(v) {
		return v
	}
	if baseDir == "" {
		return v
	}
	return filepath.Join(baseDir, v)
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil || exe == "" {
		return "."
	}
	if real, err := filepath.EvalSymlinks(exe); err == nil && real != "" {
		exe = real
	}
	dir := filepath.Dir(exe)
	if dir == "" {
		return "."
	}
	return dir
}
