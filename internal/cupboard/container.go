package cupboard

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind 定义容器形状
type Kind string

const (
	KindCup Kind = "cup"
	KindMug Kind = "mug"
)

var (
	// ErrUnknownContainerKind 表示不支持的容器形状
	ErrUnknownContainerKind = errors.New("unknown container kind")
	// ErrInvalidCapacity 表示容量不是正数
	ErrInvalidCapacity = errors.New("container capacity must be positive")
)

// Container 是咖啡机对容器的最小依赖
type Container interface {
	Capacity() float64
	IsEmpty() bool
	// Fill 返回装满咖啡后的对应容器 (cup -> coffee cup, mug -> coffee mug)
	Fill(volume float64, coffeeType CoffeeType) CoffeeContainer
}

// CoffeeContainer 是盛有咖啡的容器
type CoffeeContainer interface {
	Container
	Kind() Kind
	CoffeeType() CoffeeType
	Volume() float64
}

// NewContainer 根据形状和容量创建一个空容器
func NewContainer(kind Kind, capacity float64) (Container, error) {
	if capacity <= 0 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "got %v", capacity)
	}
	switch Kind(strings.ToLower(string(kind))) {
	case KindCup:
		return NewCup(capacity), nil
	case KindMug:
		return NewMug(capacity), nil
	default:
		return nil, errors.Wrapf(ErrUnknownContainerKind, "%q", kind)
	}
}

// vessel 保存所有容器共有的容量和空/满状态
type vessel struct {
	capacity float64
	empty    bool
}

func (v *vessel) Capacity() float64 { return v.capacity }
func (v *vessel) IsEmpty() bool     { return v.empty }

// Cup 空杯子
type Cup struct{ vessel }

func NewCup(capacity float64) *Cup {
	return &Cup{vessel{capacity: capacity, empty: true}}
}

func (c *Cup) Fill(volume float64, coffeeType CoffeeType) CoffeeContainer {
	return newCoffeeCup(c.capacity, volume, coffeeType)
}

// Mug 空马克杯
type Mug struct{ vessel }

func NewMug(capacity float64) *Mug {
	return &Mug{vessel{capacity: capacity, empty: true}}
}

func (m *Mug) Fill(volume float64, coffeeType CoffeeType) CoffeeContainer {
	return newCoffeeMug(m.capacity, volume, coffeeType)
}

// brewed 是盛有咖啡的容器的公共部分
type brewed struct {
	vessel
	kind       Kind
	coffeeType CoffeeType
	volume     float64
}

func (b *brewed) Kind() Kind             { return b.kind }
func (b *brewed) CoffeeType() CoffeeType { return b.coffeeType }
func (b *brewed) Volume() float64        { return b.volume }

func (b *brewed) refill(volume float64, coffeeType CoffeeType) {
	b.volume = volume
	b.coffeeType = coffeeType
	b.empty = false
}

func (b *brewed) String() string {
	return fmt.Sprintf("Coffee %s: capacity=%v volume=%v type=%s empty=%t",
		b.kind, b.capacity, b.volume, b.coffeeType, b.empty)
}

// CoffeeCup 装有咖啡的杯子
type CoffeeCup struct{ brewed }

func newCoffeeCup(capacity, volume float64, coffeeType CoffeeType) *CoffeeCup {
	return &CoffeeCup{brewed{
		vessel:     vessel{capacity: capacity, empty: false},
		kind:       KindCup,
		coffeeType: coffeeType,
		volume:     volume,
	}}
}

// Fill 对已有咖啡的杯子重新注入
func (c *CoffeeCup) Fill(volume float64, coffeeType CoffeeType) CoffeeContainer {
	c.refill(volume, coffeeType)
	return c
}

// CoffeeMug 装有咖啡的马克杯
type CoffeeMug struct{ brewed }

func newCoffeeMug(capacity, volume float64, coffeeType CoffeeType) *CoffeeMug {
	return &CoffeeMug{brewed{
		vessel:     vessel{capacity: capacity, empty: false},
		kind:       KindMug,
		coffeeType: coffeeType,
		volume:     volume,
	}}
}

func (m *CoffeeMug) Fill(volume float64, coffeeType CoffeeType) CoffeeContainer {
	m.refill(volume, coffeeType)
	return m
}
