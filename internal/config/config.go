// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables and
// an optional .env secrets file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/subosito/gotenv"
)

const dirMode = 0o770

// Options holds the configuration values for the application.
// It is built once at startup and never modified afterwards.
type Options struct {
	// ServerAddress defines the HTTP listening address (ip:port).
	ServerAddress string

	// BaseURL prefixes returned short links. Empty means the link is
	// derived from the registration request.
	BaseURL string

	// ConfigPath is the directory searched for .env files.
	ConfigPath string

	// DataPath holds the default sqlite database and the TLS certificate cache.
	DataPath string

	// DatabaseURL selects the record store by scheme.
	DatabaseURL string

	// BearerAuth is the shared secret of the auth gate. Empty disables it.
	BearerAuth string

	// GRPCAddress enables the gRPC listener when set.
	GRPCAddress string

	// MetricsAddress enables the Prometheus listener when set.
	MetricsAddress string

	// ConnectTimeout bounds upstream connect and TLS handshake.
	ConnectTimeout time.Duration

	// HeaderTimeout bounds the wait for upstream response headers.
	HeaderTimeout time.Duration

	LogLevel string

	// LogFile switches logging to a rotating file.
	LogFile string

	// EnablePprof indicates whether to enable pprof for performance profiling.
	EnablePprof bool

	// EnableHTTPS serves HTTPS with autocert certificates for HTTPSHosts.
	EnableHTTPS bool
	HTTPSHosts  []string

	// EnvFile is the .env file that was loaded, if any.
	EnvFile string
}

// Parse builds Options from command-line args (without the program name),
// the process environment as seen through getenv and the first .env file
// found. Environment values win over flags, and variables already present
// in the environment win over the .env file. CONFIG_PATH and DATA_PATH
// are created when missing.
func Parse(args []string, getenv func(string) string) (*Options, error) {
	appDir, err := appDir(getenv)
	if err != nil {
		return nil, err
	}

	o := &Options{}
	var connectTimeout, headerTimeout string

	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.ServerAddress, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&o.BaseURL, "b", "", "result base url")
	fs.StringVar(&o.ConfigPath, "c", filepath.Join(appDir, "config"), "config directory")
	fs.StringVar(&o.DataPath, "data", filepath.Join(appDir, "data"), "data directory")
	fs.StringVar(&o.DatabaseURL, "d", "", "database url")
	fs.StringVar(&o.BearerAuth, "t", "", "bearer token")
	fs.StringVar(&o.GRPCAddress, "g", "", "gRPC listen address")
	fs.StringVar(&o.MetricsAddress, "m", "", "metrics listen address")
	fs.StringVar(&connectTimeout, "connect-timeout", "10s", "upstream connect timeout")
	fs.StringVar(&headerTimeout, "header-timeout", "30s", "upstream response header timeout")
	fs.StringVar(&o.LogLevel, "l", "info", "log level")
	fs.StringVar(&o.LogFile, "log-file", "", "rotating log file")
	fs.BoolVar(&o.EnablePprof, "p", false, "enable pprof")
	fs.BoolVar(&o.EnableHTTPS, "s", false, "enable https")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if v := getenv("CONFIG_PATH"); v != "" {
		o.ConfigPath = v
	}

	env, envFile, err := loadEnvFile(appDir, o.ConfigPath)
	if err != nil {
		return nil, err
	}
	o.EnvFile = envFile

	lookup := func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return env[key]
	}

	override(&o.ServerAddress, lookup("SERVER_ADDRESS"))
	override(&o.BaseURL, lookup("BASE_URL"))
	override(&o.DataPath, lookup("DATA_PATH"))
	override(&o.DatabaseURL, lookup("DATABASE_URL"))
	override(&o.BearerAuth, lookup("BEARER_AUTH"))
	override(&o.GRPCAddress, lookup("GRPC_ADDRESS"))
	override(&o.MetricsAddress, lookup("METRICS_ADDRESS"))
	override(&connectTimeout, lookup("UPSTREAM_CONNECT_TIMEOUT"))
	override(&headerTimeout, lookup("UPSTREAM_HEADER_TIMEOUT"))
	override(&o.LogLevel, lookup("LOG_LEVEL"))
	override(&o.LogFile, lookup("LOG_FILE"))

	if err := overrideBool(&o.EnablePprof, "ENABLE_PPROF", lookup("ENABLE_PPROF")); err != nil {
		return nil, err
	}
	if err := overrideBool(&o.EnableHTTPS, "ENABLE_HTTPS", lookup("ENABLE_HTTPS")); err != nil {
		return nil, err
	}

	if o.ConnectTimeout, err = parseDuration("UPSTREAM_CONNECT_TIMEOUT", connectTimeout); err != nil {
		return nil, err
	}
	if o.HeaderTimeout, err = parseDuration("UPSTREAM_HEADER_TIMEOUT", headerTimeout); err != nil {
		return nil, err
	}

	for _, h := range strings.Split(lookup("HTTPS_HOSTS"), ",") {
		if h = strings.TrimSpace(h); h != "" {
			o.HTTPSHosts = append(o.HTTPSHosts, h)
		}
	}
	if o.EnableHTTPS && len(o.HTTPSHosts) == 0 {
		return nil, errors.New("ENABLE_HTTPS requires HTTPS_HOSTS")
	}

	o.BaseURL = strings.TrimRight(o.BaseURL, "/")

	if o.DatabaseURL == "" {
		o.DatabaseURL = "sqlite://" + filepath.Join(o.DataPath, "db.sqlite3")
	}

	for _, dir := range []string{o.ConfigPath, o.DataPath} {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	return o, nil
}

// appDir is APP_DIR when set, otherwise the working directory.
func appDir(getenv func(string) string) (string, error) {
	if dir := getenv("APP_DIR"); dir != "" {
		return dir, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve app dir: %w", err)
	}

	return dir, nil
}

// loadEnvFile reads the first existing .env candidate.
func loadEnvFile(appDir, configDir string) (gotenv.Env, string, error) {
	candidates := []string{
		filepath.Join(appDir, ".env"),
		filepath.Join(configDir, ".env"),
		filepath.Join(appDir, ".env.local"),
		filepath.Join(configDir, ".env.local"),
	}

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		env, err := gotenv.Read(path)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", path, err)
		}

		return env, path, nil
	}

	return gotenv.Env{}, "", nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overrideBool(dst *bool, key, v string) error {
	if v == "" {
		return nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b

	return nil
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration", key)
	}

	return d, nil
}
