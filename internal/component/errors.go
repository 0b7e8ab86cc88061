package component

import (
	"fmt"

	"github.com/pkg/errors"
)

// Resource 标识被消耗的资源
type Resource string

const (
	ResourceWater Resource = "water"
	ResourceBeans Resource = "beans"
)

var (
	// ErrInsufficientResource 表示水箱或豆仓余量不足
	ErrInsufficientResource = errors.New("insufficient resource")
	// ErrIncompatibleCoffeeType 表示向非空豆仓加入了不同品种的咖啡豆
	ErrIncompatibleCoffeeType = errors.New("coffee type added is different from the coffee type already in the tank")
	// ErrInvalidVolume 表示体积为负数
	ErrInvalidVolume = errors.New("volume must not be negative")
)

// InsufficientResourceError 记录缺少的资源及数量
type InsufficientResourceError struct {
	Resource  Resource
	Requested float64
	Available float64
}

func (e *InsufficientResourceError) Error() string {
	return fmt.Sprintf("%s: %s requested %v, available %v",
		ErrInsufficientResource, e.Resource, e.Requested, e.Available)
}

// Is 使 errors.Is(err, ErrInsufficientResource) 成立
func (e *InsufficientResourceError) Is(target error) bool {
	return target == ErrInsufficientResource
}

func checkVolume(volume float64) error {
	if volume < 0 {
		return errors.Wrapf(ErrInvalidVolume, "got %v", volume)
	}
	return nil
}
