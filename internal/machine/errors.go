package machine

import (
	"coffee-machine-demo/internal/component"

	"github.com/pkg/errors"
)

// 冲泡流程中所有可区分的失败类型
var (
	ErrMachineNotPlugged     = errors.New("you must plug your coffee machine")
	ErrContainerNotEmpty     = errors.New("the container given is not empty")
	ErrUnsupportedCapability = errors.New("this coffee machine cannot make crema, please use an espresso coffee machine")
	ErrCoffeeTypeMismatch    = errors.New("the type of coffee to be made is different from that in the bean tank")

	ErrInsufficientResource   = component.ErrInsufficientResource
	ErrIncompatibleCoffeeType = component.ErrIncompatibleCoffeeType
	ErrInvalidVolume          = component.ErrInvalidVolume
)

// InsufficientResourceError 由水箱、豆仓或冲泡前的余量检查返回
type InsufficientResourceError = component.InsufficientResourceError
