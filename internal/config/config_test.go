package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/config"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"
)

// pinArgs keeps test binary flags from leaking into config.Load
func pinArgs(t *testing.T, args ...string) {
	t.Helper()

	oldArgs := os.Args
	os.Args = append([]string{"ventctl.test"}, args...)
	t.Cleanup(func() { os.Args = oldArgs })
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "ventctl.toml")
	err := os.WriteFile(configPath, []byte(content), 0o600)
	require.NoError(t, err)

	return configPath
}

func TestLoad(t *testing.T) {
	pinArgs(t)

	configPath := writeConfig(t, `
interval = "15s"
monitor = true
debug = true
verbose = false

[thresholds]
enable = 100
disable = 110

[local]
address = "192.168.1.50"
poll_interval = "30s"
attempts = 4
retry_delay = "250ms"
timeout = "3s"

[indoor]
address = "192.168.1.51"
poll_interval = "45s"

[cloud]
api_url = "https://api.purpleair.example"
api_key = "test-key"
sensor_ids = [111, 222]
poll_interval = "10m"
max_age = "30m"
timeout = "8s"

[connectivity]
probe_address = "192.168.1.1:53"
attempt_timeout = "6s"
retry_delay = "2s"
pet_interval = "200ms"

[telemetry]
enabled = true
url = "https://collector.example/submit"
interval = "5m"
timeout = "2s"

[watchdog]
timeout = "48s"
check_interval = "500ms"

[gpio]
chip = "gpiochip4"
switch_on_pin = 5
switch_off_pin = 6
relay_pins = [13, 19]
`)
	t.Setenv("VENTCTL_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Interval, "Expected Interval 15s")
	assert.True(t, cfg.Monitor, "Expected Monitor true")
	assert.True(t, cfg.Debug, "Expected Debug true")
	assert.False(t, cfg.Verbose, "Expected Verbose false")

	assert.Equal(t, 100, cfg.Thresholds.Enable, "Expected enable threshold 100")
	assert.Equal(t, 110, cfg.Thresholds.Disable, "Expected disable threshold 110")

	assert.Equal(t, "192.168.1.50", cfg.Local.Address, "Expected local address")
	assert.Equal(t, 30*time.Second, cfg.Local.PollInterval, "Expected local poll interval 30s")
	assert.Equal(t, 4, cfg.Local.Attempts, "Expected local attempts 4")
	assert.Equal(t, 250*time.Millisecond, cfg.Local.RetryDelay, "Expected local retry delay 250ms")
	assert.Equal(t, 3*time.Second, cfg.Local.Timeout, "Expected local timeout 3s")

	assert.Equal(t, "192.168.1.51", cfg.Indoor.Address, "Expected indoor address")
	assert.Equal(t, 45*time.Second, cfg.Indoor.PollInterval, "Expected indoor poll interval 45s")

	assert.Equal(t, "https://api.purpleair.example", cfg.Cloud.APIURL, "Expected cloud API URL")
	assert.Equal(t, "test-key", cfg.Cloud.APIKey, "Expected cloud API key")
	assert.Equal(t, []int{111, 222}, cfg.Cloud.SensorIDs, "Expected cloud sensor IDs")
	assert.Equal(t, 10*time.Minute, cfg.Cloud.PollInterval, "Expected cloud poll interval 10m")
	assert.Equal(t, 30*time.Minute, cfg.Cloud.MaxAge, "Expected cloud max age 30m")
	assert.Equal(t, 8*time.Second, cfg.Cloud.Timeout, "Expected cloud timeout 8s")

	assert.Equal(t, "192.168.1.1:53", cfg.Connectivity.ProbeAddress, "Expected probe address")
	assert.Equal(t, 6*time.Second, cfg.Connectivity.AttemptTimeout, "Expected attempt timeout 6s")
	assert.Equal(t, 2*time.Second, cfg.Connectivity.RetryDelay, "Expected connectivity retry delay 2s")
	assert.Equal(t, 200*time.Millisecond, cfg.Connectivity.PetInterval, "Expected pet interval 200ms")

	assert.True(t, cfg.Telemetry.Enabled, "Expected telemetry enabled")
	assert.Equal(t, "https://collector.example/submit", cfg.Telemetry.URL, "Expected telemetry URL")
	assert.Equal(t, 5*time.Minute, cfg.Telemetry.Interval, "Expected telemetry interval 5m")
	assert.Equal(t, 2*time.Second, cfg.Telemetry.Timeout, "Expected telemetry timeout 2s")

	assert.Equal(t, 48*time.Second, cfg.Watchdog.Timeout, "Expected watchdog timeout 48s")
	assert.Equal(t, 500*time.Millisecond, cfg.Watchdog.CheckInterval, "Expected watchdog check interval 500ms")

	assert.Equal(t, "gpiochip4", cfg.GPIO.Chip, "Expected gpio chip")
	assert.Equal(t, 5, cfg.GPIO.SwitchOnPin, "Expected switch on pin 5")
	assert.Equal(t, 6, cfg.GPIO.SwitchOffPin, "Expected switch off pin 6")
	assert.Equal(t, []int{13, 19}, cfg.GPIO.RelayPins, "Expected relay pins 13 and 19")
}

func TestLoadDefaults(t *testing.T) {
	pinArgs(t)

	// A bare local sensor satisfies source validation, everything else
	// comes from defaults
	configPath := writeConfig(t, `
[local]
address = "192.168.1.50"
`)
	t.Setenv("VENTCTL_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, time.Second, cfg.Interval, "Expected default Interval 1s")
	assert.False(t, cfg.Monitor, "Expected default Monitor false")
	assert.False(t, cfg.Debug, "Expected default Debug false")

	assert.Equal(t, 120, cfg.Thresholds.Enable, "Expected default enable threshold 120")
	assert.Equal(t, 130, cfg.Thresholds.Disable, "Expected default disable threshold 130")

	assert.Equal(t, time.Minute, cfg.Local.PollInterval, "Expected default local poll interval 1m")
	assert.Equal(t, 3, cfg.Local.Attempts, "Expected default local attempts 3")
	assert.Equal(t, 500*time.Millisecond, cfg.Local.RetryDelay, "Expected default local retry delay 500ms")
	assert.Equal(t, 5*time.Second, cfg.Local.Timeout, "Expected default local timeout 5s")

	assert.Equal(t, "https://api.purpleair.com", cfg.Cloud.APIURL, "Expected default cloud API URL")
	assert.Equal(t, 20*time.Minute, cfg.Cloud.PollInterval, "Expected default cloud poll interval 20m")
	assert.Equal(t, time.Hour, cfg.Cloud.MaxAge, "Expected default cloud max age 1h")
	assert.Equal(t, 10*time.Second, cfg.Cloud.Timeout, "Expected default cloud timeout 10s")

	assert.Equal(t, 10*time.Second, cfg.Connectivity.AttemptTimeout, "Expected default attempt timeout 10s")
	assert.Equal(t, 5*time.Second, cfg.Connectivity.RetryDelay, "Expected default connectivity retry delay 5s")
	assert.Equal(t, 250*time.Millisecond, cfg.Connectivity.PetInterval, "Expected default pet interval 250ms")

	assert.False(t, cfg.Telemetry.Enabled, "Expected telemetry disabled by default")
	assert.Equal(t, 15*time.Minute, cfg.Telemetry.Interval, "Expected default telemetry interval 15m")

	assert.Equal(t, 16*time.Second, cfg.Watchdog.Timeout, "Expected default watchdog timeout 16s")
	assert.Equal(t, time.Second, cfg.Watchdog.CheckInterval, "Expected default watchdog check interval 1s")

	assert.Equal(t, "gpiochip0", cfg.GPIO.Chip, "Expected default gpio chip")
	assert.Equal(t, 23, cfg.GPIO.SwitchOnPin, "Expected default switch on pin 23")
	assert.Equal(t, 24, cfg.GPIO.SwitchOffPin, "Expected default switch off pin 24")
	assert.Equal(t, []int{17, 27}, cfg.GPIO.RelayPins, "Expected default relay pins 17 and 27")
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	pinArgs(t)

	configPath := writeConfig(t, `
This is not a valid TOML file
`)
	t.Setenv("VENTCTL_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig), "Expected read config error code")
}

func TestLoadRequiresOutdoorSource(t *testing.T) {
	pinArgs(t)

	configPath := writeConfig(t, `
interval = "10s"
`)
	t.Setenv("VENTCTL_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrNoSensors), "Expected no sensors error code")
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	pinArgs(t)

	configPath := writeConfig(t, `
[thresholds]
enable = 130
disable = 120

[local]
address = "192.168.1.50"
`)
	t.Setenv("VENTCTL_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidThresholds), "Expected invalid thresholds error code")
}

func TestLoadCloudSensorsRequireKey(t *testing.T) {
	pinArgs(t)

	configPath := writeConfig(t, `
[local]
address = "192.168.1.50"

[cloud]
sensor_ids = [111]
`)
	t.Setenv("VENTCTL_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrMissingCredential), "Expected missing credential error code")
}

func TestLoadTelemetryRequiresURL(t *testing.T) {
	pinArgs(t)

	configPath := writeConfig(t, `
[local]
address = "192.168.1.50"

[telemetry]
enabled = true
`)
	t.Setenv("VENTCTL_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrMissingConfig), "Expected missing configuration error code")
}

func TestLoadWatchdogMustOutliveTick(t *testing.T) {
	pinArgs(t)

	configPath := writeConfig(t, `
interval = "10s"

[local]
address = "192.168.1.50"

[watchdog]
timeout = "5s"
`)
	t.Setenv("VENTCTL_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig), "Expected invalid configuration error code")
}

func TestMonitorFlag(t *testing.T) {
	pinArgs(t, "--monitor")

	configPath := writeConfig(t, `
[local]
address = "192.168.1.50"
`)
	t.Setenv("VENTCTL_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.Monitor, "Expected Monitor to be set by flag")
}

func TestCloudAPIKeyFromEnvironment(t *testing.T) {
	pinArgs(t)

	configPath := writeConfig(t, `
[cloud]
sensor_ids = [9000]
`)
	t.Setenv("VENTCTL_CONFIG", configPath)
	t.Setenv("VENTCTL_CLOUD_API_KEY", "env-key")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Cloud.APIKey, "Expected API key from environment")
	assert.True(t, cfg.CloudConfigured(), "Expected cloud source to be configured")
}
