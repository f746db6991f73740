package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/fmdesk/internal/app"
)

const (
	defaultDB  = "fmdesk.db"
	envPrefix  = "FMDESK"
	configName = ".fmdesk"

	// defaultRedirectURL is where login listens for the provider callback.
	defaultRedirectURL = "http://127.0.0.1:8765/callback"
)

// flagKeys maps persistent flags to their configuration keys.
var flagKeys = map[string]string{
	"db":           "db",
	"api-url":      "api_url",
	"auth-domain":  "auth.domain",
	"client-id":    "auth.client_id",
	"access-token": "access_token",

	"follow-redirects": "follow_redirects",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for flag, key := range flagKeys {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

// initConfig reads the config file and the FMDESK_ environment. Flags set on
// the command line win over both.
func initConfig(opts *RootOptions) error {
	v := opts.v
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(configName)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("auth_timeout", 3*time.Second)
	v.SetDefault("auth.redirect_url", defaultRedirectURL)
	// Nested keys are only seen by AutomaticEnv once they are known.
	for _, key := range []string{
		"auth.client_secret", "auth.audience", "auth.redirect_url",
		"auth.logout_return_to", "auth.auth_url", "auth.token_url",
		"auth.userinfo_url", "auth.logout_url", "rate_limit", "max_retries",
	} {
		_ = v.BindEnv(key)
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		slog.Debug("using config file", "file", v.ConfigFileUsed())
	case errors.As(err, &notFound):
	default:
		return WrapExitError(ExitCommandError, "failed to read config", err)
	}
	return nil
}

// appConfig decodes the merged configuration.
func (o *RootOptions) appConfig() (app.Config, error) {
	var cfg app.Config
	if err := o.v.Unmarshal(&cfg); err != nil {
		return cfg, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if cfg.DB == "" {
		cfg.DB = defaultDB
	}
	return cfg, nil
}

// setupLogging installs a text slog handler on w. Debug records are shown
// with --verbose.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func requireAPI(cfg app.Config) error {
	if cfg.APIURL == "" {
		return NewExitError(ExitCommandError, fmt.Sprintf("no API URL configured (set --api-url or %s_API_URL)", envPrefix))
	}
	return nil
}
