// Package config loads the process configuration from a JSON file. The
// path comes from the first command-line argument, falling back to
// ./etc/config.json. Configuration problems are fatal at startup.
package config

import (
	"time"

	"github.com/samsarahq/go/oops"
	"github.com/spf13/viper"
)

// DefaultPath is used when no path is given on the command line.
const DefaultPath = "./etc/config.json"

// Config is the full process configuration.
type Config struct {
	// ListenAddr is the address the HTTP listener binds.
	ListenAddr string `mapstructure:"listen_addr"`
	// UpstreamURL is the GraphQL endpoint queries are forwarded to.
	UpstreamURL string `mapstructure:"upstream_url"`
	// RedisConnectionString selects the Redis cache backend when set;
	// empty means the in-memory backend.
	RedisConnectionString string `mapstructure:"redis_connection_string"`
	// OIDCConfigurationEndpoint is the OpenID discovery document used to
	// fetch JWT signing keys. Empty selects simple header authorization.
	OIDCConfigurationEndpoint string `mapstructure:"oidc_configuration_endpoint"`
	// OIDCTokenHeader is the request header carrying the caller identity.
	OIDCTokenHeader string `mapstructure:"oidc_token_header"`
	// CacheSweepInterval paces the in-memory cache's expiry sweeper.
	CacheSweepInterval time.Duration `mapstructure:"cache_sweep_interval"`
	// LogLevel is a zerolog level name.
	LogLevel string `mapstructure:"log_level"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("listen_addr", ":3030")
	v.SetDefault("oidc_token_header", "Authorization")
	v.SetDefault("cache_sweep_interval", "5s")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, oops.Wrapf(err, "reading config file %q", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, oops.Wrapf(err, "decoding config file %q", path)
	}

	if cfg.UpstreamURL == "" {
		return nil, oops.Errorf("config %q: upstream_url is required", path)
	}
	if cfg.CacheSweepInterval <= 0 {
		return nil, oops.Errorf("config %q: cache_sweep_interval must be positive", path)
	}

	return &cfg, nil
}

// PathFromArgs picks the config path from command-line arguments.
func PathFromArgs(args []string) string {
	if len(args) > 1 && args[1] != "" {
		return args[1]
	}
	return DefaultPath
}
