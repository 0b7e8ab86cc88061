package component

import (
	"math"
	"sync"

	"coffee-machine-demo/internal/cupboard"

	"github.com/pkg/errors"
)

// Tank 是有上限的资源储存器，水箱和豆仓共用
// minVolume 只做记录，不参与校验
type Tank struct {
	mu           sync.RWMutex
	minVolume    float64
	maxVolume    float64
	actualVolume float64
}

func newTank(minVolume, maxVolume float64) Tank {
	return Tank{minVolume: minVolume, maxVolume: maxVolume}
}

func (t *Tank) MinVolume() float64 { return t.minVolume }
func (t *Tank) MaxVolume() float64 { return t.maxVolume }

func (t *Tank) ActualVolume() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.actualVolume
}

// increase 增加体积，超出上限的部分直接丢弃
func (t *Tank) increase(volume float64) {
	t.actualVolume = math.Min(t.actualVolume+volume, t.maxVolume)
}

// volumeEpsilon 浮点累减后的残留量，低于该值视为已取空
const volumeEpsilon = 1e-9

// decrease 扣减体积，余量不足时不做任何修改
func (t *Tank) decrease(resource Resource, volume float64) error {
	if volume-t.actualVolume > volumeEpsilon {
		return &InsufficientResourceError{Resource: resource, Requested: volume, Available: t.actualVolume}
	}
	t.actualVolume -= volume
	if t.actualVolume < volumeEpsilon {
		t.actualVolume = 0
	}
	return nil
}

// WaterTank 水箱
type WaterTank struct {
	Tank
}

func NewWaterTank(minVolume, maxVolume float64) *WaterTank {
	return &WaterTank{Tank: newTank(minVolume, maxVolume)}
}

// AddWater 加水，超过容量时截断到 maxVolume
func (w *WaterTank) AddWater(volume float64) error {
	if err := checkVolume(volume); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.increase(volume)
	return nil
}

// WithdrawWater 取水
func (w *WaterTank) WithdrawWater(volume float64) error {
	if err := checkVolume(volume); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.decrease(ResourceWater, volume)
}

// BeanTank 豆仓，同一时刻只能存放一种咖啡豆
type BeanTank struct {
	Tank
	coffeeType cupboard.CoffeeType
}

func NewBeanTank(minVolume, maxVolume float64) *BeanTank {
	return &BeanTank{Tank: newTank(minVolume, maxVolume)}
}

// CoffeeType 返回当前豆仓中的品种，空豆仓返回空字符串
func (b *BeanTank) CoffeeType() cupboard.CoffeeType {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.coffeeType
}

// AddCoffee 加豆。非空豆仓只接受相同品种，空豆仓接受任意品种并重新记录
func (b *BeanTank) AddCoffee(volume float64, coffeeType cupboard.CoffeeType) error {
	if err := checkVolume(volume); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.actualVolume > 0 && b.coffeeType != coffeeType {
		return errors.Wrapf(ErrIncompatibleCoffeeType, "tank holds %s, got %s", b.coffeeType, coffeeType)
	}
	b.coffeeType = coffeeType
	b.increase(volume)
	return nil
}

// WithdrawCoffee 取豆，取空后清除品种
func (b *BeanTank) WithdrawCoffee(volume float64) error {
	if err := checkVolume(volume); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.decrease(ResourceBeans, volume); err != nil {
		return err
	}
	if b.actualVolume == 0 {
		b.coffeeType = ""
	}
	return nil
}
