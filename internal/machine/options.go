package machine

import (
	"log/slog"

	"coffee-machine-demo/internal/component"
)

const (
	// DefaultGrindingTime 默认研磨耗时 (秒)
	DefaultGrindingTime = 2.0
	// DefaultFailureThreshold 高斯采样严格大于该值时机器进入故障
	DefaultFailureThreshold = 0.8
)

// Capabilities 描述机型支持的冲泡能力
type Capabilities struct {
	Crema bool `json:"crema"`
}

type options struct {
	capabilities     Capabilities
	sleeper          component.Sleeper
	grindingTime     float64
	grindVolume      float64
	failureThreshold float64
	sampler          Sampler
	logger           *slog.Logger
}

// Option 定制咖啡机的构造参数
type Option func(*options)

func defaultOptions() options {
	return options{
		grindingTime:     DefaultGrindingTime,
		grindVolume:      component.DefaultGrindVolume,
		failureThreshold: DefaultFailureThreshold,
	}
}

// WithCapabilities 设置机型能力
func WithCapabilities(c Capabilities) Option {
	return func(o *options) { o.capabilities = c }
}

// WithSleeper 替换水泵和磨豆机的时间源，测试中可传入不等待的实现
func WithSleeper(s component.Sleeper) Option {
	return func(o *options) { o.sleeper = s }
}

// WithGrinder 设置研磨耗时 (秒) 和每次消耗的豆量
func WithGrinder(grindingTime, grindVolume float64) Option {
	return func(o *options) {
		o.grindingTime = grindingTime
		o.grindVolume = grindVolume
	}
}

func WithFailureThreshold(threshold float64) Option {
	return func(o *options) { o.failureThreshold = threshold }
}

// WithSampler 注入故障模拟使用的随机源
func WithSampler(s Sampler) Option {
	return func(o *options) { o.sampler = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}
