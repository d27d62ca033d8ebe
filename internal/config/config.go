package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"
)

const (
	envConfigFile = "VENTCTL_CONFIG"
	envPrefix     = "VENTCTL"

	defaultInterval = time.Second
)

type Config struct {
	Interval time.Duration `mapstructure:"interval"`
	Monitor  bool          `mapstructure:"monitor"`
	Debug    bool          `mapstructure:"debug"`
	Verbose  bool          `mapstructure:"verbose"`

	Thresholds   ThresholdConfig    `mapstructure:"thresholds"`
	Local        LocalConfig        `mapstructure:"local"`
	Indoor       IndoorConfig       `mapstructure:"indoor"`
	Cloud        CloudConfig        `mapstructure:"cloud"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
	Watchdog     WatchdogConfig     `mapstructure:"watchdog"`
	GPIO         GPIOConfig         `mapstructure:"gpio"`
}

type ThresholdConfig struct {
	Enable  int `mapstructure:"enable"`
	Disable int `mapstructure:"disable"`
}

type LocalConfig struct {
	Address      string        `mapstructure:"address"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Attempts     int           `mapstructure:"attempts"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type IndoorConfig struct {
	Address      string        `mapstructure:"address"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type CloudConfig struct {
	APIURL       string        `mapstructure:"api_url"`
	APIKey       string        `mapstructure:"api_key"`
	SensorIDs    []int         `mapstructure:"sensor_ids"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAge       time.Duration `mapstructure:"max_age"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type ConnectivityConfig struct {
	ProbeAddress   string        `mapstructure:"probe_address"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	PetInterval    time.Duration `mapstructure:"pet_interval"`
}

type TelemetryConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type WatchdogConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

type GPIOConfig struct {
	Chip         string `mapstructure:"chip"`
	SwitchOnPin  int    `mapstructure:"switch_on_pin"`
	SwitchOffPin int    `mapstructure:"switch_off_pin"`
	RelayPins    []int  `mapstructure:"relay_pins"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	// An optional .env alongside the binary may carry secrets such as
	// VENTCTL_CLOUD_API_KEY. A missing file is fine.
	_ = godotenv.Load()

	flags := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	configFlag := flags.String("config", "", "Path to config file")
	debugFlag := flags.Bool("debug", false, "Enable debugging mode")
	verboseFlag := flags.Bool("verbose", false, "Enable verbose logging")
	monitorFlag := flags.Bool("monitor", false, "Only poll sensors and log, never drive the relay")
	intervalFlag := flags.Duration("interval", defaultInterval, "Control loop tick interval")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := configPath(*configFlag); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName("ventctl")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/ventctl")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	// Command line flags override file and environment values
	if flags.Changed("debug") {
		v.Set("debug", *debugFlag)
	}
	if flags.Changed("verbose") {
		v.Set("verbose", *verboseFlag)
	}
	if flags.Changed("monitor") {
		v.Set("monitor", *monitorFlag)
	}
	if flags.Changed("interval") {
		v.Set("interval", *intervalFlag)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func configPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return os.Getenv(envConfigFile)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", defaultInterval)
	v.SetDefault("monitor", false)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)

	v.SetDefault("thresholds.enable", 120)
	v.SetDefault("thresholds.disable", 130)

	v.SetDefault("local.address", "")
	v.SetDefault("local.poll_interval", time.Minute)
	v.SetDefault("local.attempts", 3)
	v.SetDefault("local.retry_delay", 500*time.Millisecond)
	v.SetDefault("local.timeout", 5*time.Second)

	v.SetDefault("indoor.address", "")
	v.SetDefault("indoor.poll_interval", time.Minute)

	v.SetDefault("cloud.api_url", "https://api.purpleair.com")
	v.SetDefault("cloud.api_key", "")
	v.SetDefault("cloud.sensor_ids", []int{})
	v.SetDefault("cloud.poll_interval", 20*time.Minute)
	v.SetDefault("cloud.max_age", time.Hour)
	v.SetDefault("cloud.timeout", 10*time.Second)

	v.SetDefault("connectivity.probe_address", "")
	v.SetDefault("connectivity.attempt_timeout", 10*time.Second)
	v.SetDefault("connectivity.retry_delay", 5*time.Second)
	v.SetDefault("connectivity.pet_interval", 250*time.Millisecond)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.url", "")
	v.SetDefault("telemetry.interval", 15*time.Minute)
	v.SetDefault("telemetry.timeout", 5*time.Second)

	v.SetDefault("watchdog.timeout", 16*time.Second)
	v.SetDefault("watchdog.check_interval", time.Second)

	v.SetDefault("gpio.chip", "gpiochip0")
	v.SetDefault("gpio.switch_on_pin", 23)
	v.SetDefault("gpio.switch_off_pin", 24)
	v.SetDefault("gpio.relay_pins", []int{17, 27})
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.New(errors.ErrInvalidInterval).WithMessage("tick interval must be positive")
	}
	if c.Thresholds.Enable < 0 || c.Thresholds.Enable >= c.Thresholds.Disable {
		return errFactory.New(errors.ErrInvalidThresholds).WithData(map[string]int{
			"enable":  c.Thresholds.Enable,
			"disable": c.Thresholds.Disable,
		})
	}
	if !c.HasOutdoorSource() {
		return errFactory.New(errors.ErrNoSensors)
	}
	if len(c.Cloud.SensorIDs) > 0 && c.Cloud.APIKey == "" {
		return errFactory.New(errors.ErrMissingCredential).WithMessage("cloud sensors configured without an API key")
	}
	if c.Local.Address != "" {
		if c.Local.PollInterval <= 0 {
			return errFactory.New(errors.ErrInvalidInterval).WithMessage("local poll interval must be positive")
		}
		if c.Local.Attempts < 1 {
			return errFactory.New(errors.ErrInvalidConfig).WithMessage("local attempts must be at least 1")
		}
	}
	if c.Indoor.Address != "" && c.Indoor.PollInterval <= 0 {
		return errFactory.New(errors.ErrInvalidInterval).WithMessage("indoor poll interval must be positive")
	}
	if c.CloudConfigured() && c.Cloud.PollInterval <= 0 {
		return errFactory.New(errors.ErrInvalidInterval).WithMessage("cloud poll interval must be positive")
	}
	if c.Connectivity.AttemptTimeout <= 0 || c.Connectivity.PetInterval <= 0 {
		return errFactory.New(errors.ErrInvalidConfig).WithMessage("connectivity timings must be positive")
	}
	if c.Telemetry.Enabled && c.Telemetry.URL == "" {
		return errFactory.New(errors.ErrMissingConfig).WithMessage("telemetry enabled without a collector URL")
	}
	if c.Watchdog.Timeout <= c.Interval {
		return errFactory.New(errors.ErrInvalidConfig).WithMessage("watchdog timeout must exceed the tick interval")
	}
	if c.Watchdog.CheckInterval <= 0 {
		return errFactory.New(errors.ErrInvalidInterval).WithMessage("watchdog check interval must be positive")
	}

	return nil
}

// CloudConfigured reports whether the cloud API source is usable
func (c *Config) CloudConfigured() bool {
	return c.Cloud.APIKey != "" && len(c.Cloud.SensorIDs) > 0
}

// HasOutdoorSource reports whether at least one outdoor reading source exists
func (c *Config) HasOutdoorSource() bool {
	return c.Local.Address != "" || c.CloudConfigured()
}
