package config

import (
	"log/slog"
	"strings"

	"coffee-machine-demo/internal/component"
	"coffee-machine-demo/internal/machine"
	"coffee-machine-demo/internal/util"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	VariantClassic  = "classic"
	VariantEspresso = "espresso"
)

// TankConfig 定义储存器的容量范围，min 仅作记录
type TankConfig struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// MachineConfig 定义咖啡机硬件参数
type MachineConfig struct {
	Variant          string     `mapstructure:"variant"`           // classic 或 espresso
	WaterTank        TankConfig `mapstructure:"water_tank"`        // 水箱
	BeanTank         TankConfig `mapstructure:"bean_tank"`         // 豆仓
	PumpingCapacity  float64    `mapstructure:"pumping_capacity"`  // 每小时泵水量
	GrindingTimeS    float64    `mapstructure:"grinding_time_s"`   // 研磨耗时 (秒)
	GrindVolume      float64    `mapstructure:"grind_volume"`      // 每次研磨消耗的豆量
	FailureThreshold float64    `mapstructure:"failure_threshold"` // 故障模拟阈值
	TimeScale        float64    `mapstructure:"time_scale"`        // 模拟耗时的缩放比例，0 表示不等待
}

// EngineConfig 定义订单调度参数
type EngineConfig struct {
	FaultCheckAfterBrew bool     `mapstructure:"fault_check_after_brew"` // 每次出杯后抽取一次故障样本
	AdmissionRules      []string `mapstructure:"admission_rules"`        // 订单准入规则 (expr 语法)
	StepDelayMs         int      `mapstructure:"step_delay_ms"`          // 两份订单之间的间隔
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// Config 定义应用程序的配置结构
type Config struct {
	Machine MachineConfig  `mapstructure:"machine"`
	Engine  EngineConfig   `mapstructure:"engine"`
	Server  ServerConfig   `mapstructure:"server"`
	Journal JournalConfig  `mapstructure:"journal"`
	Log     util.LogConfig `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("machine.variant", VariantClassic)
	v.SetDefault("machine.water_tank.min", 0)
	v.SetDefault("machine.water_tank.max", 10)
	v.SetDefault("machine.bean_tank.min", 0)
	v.SetDefault("machine.bean_tank.max", 10)
	v.SetDefault("machine.pumping_capacity", 700)
	v.SetDefault("machine.grinding_time_s", machine.DefaultGrindingTime)
	v.SetDefault("machine.grind_volume", component.DefaultGrindVolume)
	v.SetDefault("machine.failure_threshold", machine.DefaultFailureThreshold)
	v.SetDefault("machine.time_scale", 1.0)

	v.SetDefault("engine.fault_check_after_brew", false)
	v.SetDefault("engine.admission_rules", []string{})
	v.SetDefault("engine.step_delay_ms", 0)

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("journal.path", "orders.wal")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
}

// LoadConfig 使用 Viper 读取配置
// path 为空时在当前目录查找 config.yaml，找不到则全部使用默认值
// 所有配置项都可以通过 COFFEE_ 前缀的环境变量覆盖，例如 COFFEE_MACHINE_VARIANT
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("COFFEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查硬件参数是否合法
func (c *Config) Validate() error {
	m := c.Machine
	switch m.Variant {
	case VariantClassic, VariantEspresso:
	default:
		return errors.Errorf("machine.variant must be %q or %q, got %q", VariantClassic, VariantEspresso, m.Variant)
	}
	if m.WaterTank.Max <= 0 || m.BeanTank.Max <= 0 {
		return errors.New("tank max volumes must be positive")
	}
	if m.PumpingCapacity <= 0 {
		return errors.New("machine.pumping_capacity must be positive")
	}
	if m.GrindingTimeS < 0 || m.TimeScale < 0 {
		return errors.New("machine.grinding_time_s and machine.time_scale must not be negative")
	}
	return nil
}

// NewMachine 根据配置创建咖啡机
func (m MachineConfig) NewMachine(logger *slog.Logger, opts ...machine.Option) *machine.CoffeeMachine {
	opts = append([]machine.Option{
		machine.WithSleeper(component.NewScaledSleeper(m.TimeScale)),
		machine.WithGrinder(m.GrindingTimeS, m.GrindVolume),
		machine.WithFailureThreshold(m.FailureThreshold),
		machine.WithLogger(logger),
	}, opts...)

	if m.Variant == VariantEspresso {
		return machine.NewEspresso(m.WaterTank.Min, m.WaterTank.Max, m.BeanTank.Min, m.BeanTank.Max, m.PumpingCapacity, opts...)
	}
	return machine.New(m.WaterTank.Min, m.WaterTank.Max, m.BeanTank.Min, m.BeanTank.Max, m.PumpingCapacity, opts...)
}
