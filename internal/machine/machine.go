package machine

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"coffee-machine-demo/internal/component"
	"coffee-machine-demo/internal/cupboard"

	"github.com/pkg/errors"
)

// Sampler 是故障模拟的随机源，*rand.Rand 满足该接口
type Sampler interface {
	NormFloat64() float64
}

// Step 表示冲泡中的物理阶段
type Step string

const (
	StepGrinding Step = "grinding"
	StepPumping  Step = "pumping"
)

// StepObserver 接收冲泡阶段的开始和结束通知
type StepObserver interface {
	StepStarted(step Step)
	StepCompleted(step Step, elapsed time.Duration)
}

// CoffeeMachine 咖啡机
// 状态: 未通电 -> 通电 -> (正常 | 故障)，故障为终态
type CoffeeMachine struct {
	waterTank     *component.WaterTank
	beanTank      *component.BeanTank
	waterPump     *component.WaterPump
	coffeeGrinder *component.CoffeeGrinder
	capabilities  Capabilities

	plugged    atomic.Bool
	outOfOrder atomic.Bool

	failureThreshold float64
	samplerMu        sync.Mutex
	sampler          Sampler

	brewMu sync.Mutex // 同一时刻只允许一次冲泡
	logger *slog.Logger
}

// New 创建一台普通咖啡机，不支持 crema
// 水箱和豆仓的 min 参数只做记录
func New(waterTankMin, waterTankMax, beanTankMin, beanTankMax, pumpingCapacity float64, opts ...Option) *CoffeeMachine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.sleeper == nil {
		o.sleeper = component.NewScaledSleeper(1)
	}
	if o.sampler == nil {
		o.sampler = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return &CoffeeMachine{
		waterTank:        component.NewWaterTank(waterTankMin, waterTankMax),
		beanTank:         component.NewBeanTank(beanTankMin, beanTankMax),
		waterPump:        component.NewWaterPump(pumpingCapacity, o.sleeper),
		coffeeGrinder:    component.NewCoffeeGrinder(o.grindingTime, o.grindVolume, o.sleeper),
		capabilities:     o.capabilities,
		failureThreshold: o.failureThreshold,
		sampler:          o.sampler,
		logger:           o.logger.With("component", "coffee_machine"),
	}
}

// NewEspresso 创建一台意式咖啡机，与普通机型唯一的区别是支持 crema
func NewEspresso(waterTankMin, waterTankMax, beanTankMin, beanTankMax, pumpingCapacity float64, opts ...Option) *CoffeeMachine {
	opts = append(opts, WithCapabilities(Capabilities{Crema: true}))
	return New(waterTankMin, waterTankMax, beanTankMin, beanTankMax, pumpingCapacity, opts...)
}

// PlugToElectricalPlug 接通电源，重复调用无副作用
func (m *CoffeeMachine) PlugToElectricalPlug() {
	if m.plugged.CompareAndSwap(false, true) {
		m.logger.Info("咖啡机已通电")
	}
}

func (m *CoffeeMachine) IsPlugged() bool {
	return m.plugged.Load()
}

func (m *CoffeeMachine) IsOutOfOrder() bool {
	return m.outOfOrder.Load()
}

func (m *CoffeeMachine) Capabilities() Capabilities {
	return m.capabilities
}

// SetRandomGenerator 替换故障模拟的随机源
func (m *CoffeeMachine) SetRandomGenerator(s Sampler) {
	m.samplerMu.Lock()
	defer m.samplerMu.Unlock()
	m.sampler = s
}

// CoffeeMachineFailure 抽取一次高斯样本，严格大于阈值时机器进入故障
// 返回本次调用是否使机器进入故障
func (m *CoffeeMachine) CoffeeMachineFailure() bool {
	m.samplerMu.Lock()
	sample := m.sampler.NormFloat64()
	m.samplerMu.Unlock()

	if sample <= m.failureThreshold {
		return false
	}
	if m.outOfOrder.CompareAndSwap(false, true) {
		m.logger.Warn("咖啡机进入故障状态", "sample", sample, "threshold", m.failureThreshold)
		return true
	}
	return false
}

func (m *CoffeeMachine) AddWaterInTank(volume float64) error {
	return m.waterTank.AddWater(volume)
}

func (m *CoffeeMachine) AddCoffeeInBeanTank(volume float64, coffeeType cupboard.CoffeeType) error {
	return m.beanTank.AddCoffee(volume, coffeeType)
}

func (m *CoffeeMachine) WaterTank() *component.WaterTank {
	return m.waterTank
}

func (m *CoffeeMachine) BeanTank() *component.BeanTank {
	return m.beanTank
}

func (m *CoffeeMachine) WaterPump() *component.WaterPump {
	return m.waterPump
}

func (m *CoffeeMachine) CoffeeGrinder() *component.CoffeeGrinder {
	return m.coffeeGrinder
}

// MakeACoffee 用给定容器冲泡一杯咖啡，调用会阻塞直到研磨和泵水完成
func (m *CoffeeMachine) MakeACoffee(container cupboard.Container, coffeeType cupboard.CoffeeType) (cupboard.CoffeeContainer, error) {
	return m.Brew(container, coffeeType, nil)
}

// Brew 与 MakeACoffee 相同，额外把研磨和泵水阶段通知给 observer (可为 nil)
func (m *CoffeeMachine) Brew(container cupboard.Container, coffeeType cupboard.CoffeeType, observer StepObserver) (cupboard.CoffeeContainer, error) {
	m.brewMu.Lock()
	defer m.brewMu.Unlock()

	if err := m.validate(container, coffeeType); err != nil {
		return nil, err
	}

	if observer != nil {
		observer.StepStarted(StepGrinding)
	}
	grindingTime, err := m.coffeeGrinder.GrindCoffee(m.beanTank)
	if err != nil {
		return nil, err
	}
	if observer != nil {
		observer.StepCompleted(StepGrinding, time.Duration(grindingTime*float64(time.Second)))
	}

	if observer != nil {
		observer.StepStarted(StepPumping)
	}
	pumpingTime, err := m.waterPump.PumpWater(container.Capacity(), m.waterTank)
	if err != nil {
		return nil, err
	}
	if observer != nil {
		observer.StepCompleted(StepPumping, time.Duration(pumpingTime*float64(time.Millisecond)))
	}

	m.logger.Info("咖啡冲泡完成",
		"coffee_type", coffeeType,
		"capacity", container.Capacity(),
		"grinding_time_s", grindingTime,
		"pumping_time_ms", pumpingTime)

	return container.Fill(container.Capacity(), coffeeType), nil
}

// validate 按固定顺序检查冲泡前置条件，第一个失败的检查生效
func (m *CoffeeMachine) validate(container cupboard.Container, coffeeType cupboard.CoffeeType) error {
	if !m.IsPlugged() {
		return ErrMachineNotPlugged
	}
	if !container.IsEmpty() {
		return ErrContainerNotEmpty
	}
	if coffeeType.RequiresCrema() && !m.capabilities.Crema {
		return errors.Wrapf(ErrUnsupportedCapability, "coffee type %s", coffeeType)
	}
	if available := m.waterTank.ActualVolume(); available < container.Capacity() {
		return errors.Wrap(&InsufficientResourceError{
			Resource:  component.ResourceWater,
			Requested: container.Capacity(),
			Available: available,
		}, "you must add more water in the water tank")
	}
	if loaded := m.beanTank.CoffeeType(); loaded != "" && loaded != coffeeType {
		return errors.Wrapf(ErrCoffeeTypeMismatch, "tank holds %s, requested %s", loaded, coffeeType)
	}
	return nil
}
