package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coffee-machine-demo/internal/machine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopSleeper struct{}

func (noopSleeper) Sleep(time.Duration) {}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
machine:
  variant: espresso
  water_tank:
    min: 1
    max: 12
  pumping_capacity: 500
  time_scale: 0
engine:
  fault_check_after_brew: true
  admission_rules:
    - "order.Capacity <= 0.5"
server:
  listen: ":9999"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, VariantEspresso, cfg.Machine.Variant)
	assert.Equal(t, 1.0, cfg.Machine.WaterTank.Min)
	assert.Equal(t, 12.0, cfg.Machine.WaterTank.Max)
	assert.Equal(t, 10.0, cfg.Machine.BeanTank.Max, "unset keys keep defaults")
	assert.Equal(t, 500.0, cfg.Machine.PumpingCapacity)
	assert.Equal(t, 0.0, cfg.Machine.TimeScale)
	assert.Equal(t, machine.DefaultFailureThreshold, cfg.Machine.FailureThreshold)
	assert.True(t, cfg.Engine.FaultCheckAfterBrew)
	assert.Equal(t, []string{"order.Capacity <= 0.5"}, cfg.Engine.AdmissionRules)
	assert.Equal(t, ":9999", cfg.Server.Listen)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "machine:\n  variant: classic\n")
	t.Setenv("COFFEE_MACHINE_VARIANT", "espresso")
	t.Setenv("COFFEE_SERVER_LISTEN", ":7070")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, VariantEspresso, cfg.Machine.Variant)
	assert.Equal(t, ":7070", cfg.Server.Listen)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "machine:\n  variant: drip\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "machine:\n  pumping_capacity: 0\n"))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMachineConfig_NewMachine(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "machine:\n  variant: espresso\n  bean_tank:\n    max: 4\n"))
	require.NoError(t, err)

	m := cfg.Machine.NewMachine(slog.Default(), machine.WithSleeper(noopSleeper{}))
	assert.True(t, m.Capabilities().Crema)
	assert.Equal(t, 4.0, m.BeanTank().MaxVolume())
	assert.Equal(t, 700.0, m.WaterPump().PumpingCapacity())
	assert.Equal(t, machine.DefaultGrindingTime, m.CoffeeGrinder().GrindingTime())
}
