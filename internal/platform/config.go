package platform

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadAppConfig.
const (
	EnvPort         = "AUTOPILOT_PORT"
	EnvTLS          = "AUTOPILOT_TLS"
	EnvCertFile     = "AUTOPILOT_CERT_FILE"
	EnvKeyFile      = "AUTOPILOT_KEY_FILE"
	EnvStoreDir     = "AUTOPILOT_STORE_DIR"
	EnvNATSInProc   = "AUTOPILOT_NATS_IN_PROCESS"
	EnvHeadless     = "AUTOPILOT_HEADLESS"
	EnvSessionKey   = "AUTOPILOT_SESSION_KEY"
	EnvLogLevel     = "AUTOPILOT_LOG_LEVEL"
	defaultDotEnv   = ".env"
	defaultHTTPPort = 8080
)

// FlagsConfig holds all boolean or string flags for the app.
type FlagsConfig struct {
	// Headless disables the HTTP server when true.
	Headless bool
}

// AppConfig contains the configuration for the app.
type AppConfig struct {
	Flags      *FlagsConfig
	NatsCfg    *EmbeddedServerConfig
	HTTPSrvCfg *HTTPServerConfig
	LogLevel   slog.Level
}

// LoadAppConfig loads .env, if present, then builds the configuration from
// defaults overridden by AUTOPILOT_* environment variables. Variables already
// set in the environment win over .env entries.
func LoadAppConfig() *AppConfig {
	_ = godotenv.Load(defaultDotEnv)
	return &AppConfig{
		Flags:      defaultFlagsCfg(),
		NatsCfg:    defaultNatsCfg(),
		HTTPSrvCfg: defaultHTTPServerCfg(),
		LogLevel:   parseLevel(os.Getenv(EnvLogLevel)),
	}
}

// defaultFlagsCfg returns the default FlagsConfig (from env).
func defaultFlagsCfg() *FlagsConfig {
	return &FlagsConfig{
		Headless: envBool(EnvHeadless, false),
	}
}

// defaultHTTPServerCfg returns sane defaults for the HTTP server.
func defaultHTTPServerCfg() *HTTPServerConfig {
	return &HTTPServerConfig{
		Port:         envInt(EnvPort, defaultHTTPPort),
		ReadTimeout:  -1,
		WriteTimeout: -1,
		IdleTimeout:  -1,
		EnableTLS:    envBool(EnvTLS, false),
		CertFile:     envString(EnvCertFile, "./local_certs/localhost+2.pem"),
		KeyFile:      envString(EnvKeyFile, "./local_certs/localhost+2-key.pem"),
		SessionKey:   envString(EnvSessionKey, "very-secret-key-change-me"),
	}
}

// defaultNatsCfg returns the default EmbeddedServerConfig.
func defaultNatsCfg() *EmbeddedServerConfig {
	return &EmbeddedServerConfig{
		InProcess:       envBool(EnvNATSInProc, false),
		EnableLogging:   true,
		JetStream:       true,
		JetStreamDomain: "",
		StoreDir:        envString(EnvStoreDir, "./store/js"),
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
