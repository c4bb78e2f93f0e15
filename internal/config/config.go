package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/amrinderguler/ilo-collector/internal/errors"
)

const (
	DefaultInterval       = 60
	DefaultRequestTimeout = 15
	DefaultSessionRefresh = 50
)

// Config holds everything the collector needs for its lifetime. Values are
// immutable after Load.
type Config struct {
	// Target controller
	Host     string `mapstructure:"host" validate:"required"`
	Username string `mapstructure:"username" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`

	// Document store. Optional in monitor mode, where nothing is persisted.
	MongoURI        string `mapstructure:"mongo_uri" validate:"required_unless=Monitor true"`
	MongoDatabase   string `mapstructure:"mongo_db" validate:"required_unless=Monitor true"`
	MongoCollection string `mapstructure:"mongo_collection" validate:"required_unless=Monitor true"`

	// Collection loop tuning. The request timeout must stay below the
	// interval so a stalled device cannot push a cycle past its tick.
	Interval       int `mapstructure:"interval" validate:"gt=0"`
	RequestTimeout int `mapstructure:"request_timeout" validate:"gt=0,ltfield=Interval"`

	// Cycles before a proactive re-login. Zero disables proactive refresh
	// and relies on reactive re-auth alone. iLO session lifetimes are not
	// documented, so this stays a knob.
	SessionRefresh int `mapstructure:"session_refresh" validate:"gte=0"`

	// Management controllers commonly present self-signed certificates.
	InsecureTLS bool `mapstructure:"insecure_tls"`

	// Optional directory for local JSON copies of each record.
	ArchiveDir string `mapstructure:"archive_dir"`

	Monitor bool `mapstructure:"monitor"`
	Debug   bool `mapstructure:"debug"`
}

func (c *Config) CollectionInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

func (c *Config) PerRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// IsHelp reports whether flag parsing stopped to print usage. A help request
// is a clean exit, not a configuration failure.
func IsHelp(err error) bool {
	return errors.Is(err, pflag.ErrHelp)
}

// Load reads configuration from defaults, an optional TOML file, environment
// variables and command-line flags, in ascending precedence, then validates
// the result. Any error here is fatal before network activity starts.
func Load() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	errFactory := errors.New()
	v := viper.New()

	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("session_refresh", DefaultSessionRefresh)
	v.SetDefault("insecure_tls", true)
	v.SetDefault("archive_dir", "")

	flags := pflag.NewFlagSet("ilocollector", pflag.ContinueOnError)
	flags.Int("interval", DefaultInterval, "Seconds between collection cycles")
	flags.Int("request-timeout", DefaultRequestTimeout, "Per-request timeout in seconds")
	flags.Bool("monitor", false, "Log collected metrics without persisting them")
	flags.Bool("insecure-tls", true, "Skip TLS verification of the controller certificate")
	flags.Bool("debug", false, "Enable debug logging")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	for key, flag := range map[string]string{
		"interval":        "interval",
		"request_timeout": "request-timeout",
		"monitor":         "monitor",
		"insecure_tls":    "insecure-tls",
		"debug":           "debug",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	// Environment names follow the deployment convention for this
	// collector: ILO_* for the device, MONGO_* for the store.
	for key, env := range map[string]string{
		"host":             "ILO_HOST",
		"username":         "ILO_USER",
		"password":         "ILO_PASSWORD",
		"mongo_uri":        "MONGO_URI",
		"mongo_db":         "MONGO_DB",
		"mongo_collection": "MONGO_COLLECTION",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errFactory.Wrap(errors.ErrInternal, err)
		}
	}
	v.SetEnvPrefix("ILOCOLLECTOR")
	v.AutomaticEnv()

	v.SetConfigName("ilocollector")
	v.SetConfigType("toml")
	if path := os.Getenv("ILOCOLLECTOR_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

func validate(config *Config) error {
	errFactory := errors.New()

	err := validator.New().Struct(config)
	if err == nil {
		return nil
	}

	var violations validator.ValidationErrors
	if errors.As(err, &violations) {
		for _, violation := range violations {
			switch violation.Tag() {
			case "required", "required_unless":
				return errFactory.Wrap(errors.ErrMissingConfig, err).
					WithData(violation.Field())
			}
		}

		return errFactory.Wrap(errors.ErrInvalidConfig, err).
			WithData(violations[0].Field())
	}

	return errFactory.Wrap(errors.ErrInvalidConfig, err)
}
