package types

import (
	"coffee-machine-demo/internal/cupboard"
	"coffee-machine-demo/internal/fsm"
)

// ContainerSpec 描述订单携带的空容器
type ContainerSpec struct {
	Kind     cupboard.Kind `json:"kind"`     // cup 或 mug
	Capacity float64       `json:"capacity"` // 容量，同时也是冲泡的水量
}

// Order 表示一份咖啡订单
type Order struct {
	ID         string              `json:"id"`                // 订单唯一标识
	CoffeeType cupboard.CoffeeType `json:"coffee_type"`       // 期望的咖啡品种
	Container  ContainerSpec       `json:"container"`         // 用于盛装的容器
	Priority   int                 `json:"priority"`          // 优先级：数值越大优先级越高
	Status     string              `json:"status,omitempty"`  // 当前状态，由 FSM 管理
	History    []string            `json:"history,omitempty"` // 经历过的冲泡阶段
	FSM        *fsm.FSM            `json:"-"`                 // 运行时绑定的 FSM 实例
}

// RuleEnv 返回规则引擎可见的订单属性
func (o *Order) RuleEnv() map[string]interface{} {
	return map[string]interface{}{
		"ID":         o.ID,
		"CoffeeType": string(o.CoffeeType),
		"Kind":       string(o.Container.Kind),
		"Capacity":   o.Container.Capacity,
		"Priority":   o.Priority,
	}
}

// Result 表示一次冲泡的结果
type Result struct {
	OrderID string
	Success bool
	Coffee  cupboard.CoffeeContainer // 成功时为装满的容器
	Error   error
}
