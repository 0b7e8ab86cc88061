package web

import (
	"sync"

	"coffee-machine-demo/internal/cupboard"
	"coffee-machine-demo/internal/machine"
	"coffee-machine-demo/internal/types"
)

// OrderState 定义了用于 UI 展示的订单状态
type OrderState struct {
	ID         string              `json:"id"`
	CoffeeType cupboard.CoffeeType `json:"coffee_type"`
	Container  cupboard.Kind       `json:"container"`
	Capacity   float64             `json:"capacity"`
	Priority   int                 `json:"priority"`
	Step       machine.Step        `json:"step,omitempty"`
	Status     string              `json:"status"`
	Served     float64             `json:"served,omitempty"` // 出杯的咖啡量
	Error      string              `json:"error,omitempty"`
}

// GlobalState 代表咖啡机和所有订单的实时状态快照
type GlobalState struct {
	Machine machine.Snapshot      `json:"machine"`
	Orders  map[string]OrderState `json:"orders"`
}

// StateTracker 负责追踪实时状态，并通知前端更新
type StateTracker struct {
	mu    sync.RWMutex
	state GlobalState
	hub   *Hub
}

// NewStateTracker 创建一个新的 StateTracker 实例
func NewStateTracker(hub *Hub) *StateTracker {
	return &StateTracker{
		state: GlobalState{Orders: make(map[string]OrderState)},
		hub:   hub,
	}
}

// AddOrder 将一份新订单加入追踪并广播
func (st *StateTracker) AddOrder(o *types.Order) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state.Orders[o.ID] = OrderState{
		ID:         o.ID,
		CoffeeType: o.CoffeeType,
		Container:  o.Container.Kind,
		Capacity:   o.Container.Capacity,
		Priority:   o.Priority,
		Status:     "QUEUED",
	}
	st.broadcast()
}

// UpdateOrderState 更新单份订单的状态，未知订单忽略
func (st *StateTracker) UpdateOrderState(id string, step machine.Step, status string, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if order, ok := st.state.Orders[id]; ok {
		order.Step = step
		order.Status = status
		if err != nil {
			order.Error = err.Error()
		}
		st.state.Orders[id] = order
	}
	st.broadcast()
}

// ServeOrder 记录出杯结果，订单状态置为 SERVED
func (st *StateTracker) ServeOrder(id string, coffee cupboard.CoffeeContainer) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if order, ok := st.state.Orders[id]; ok {
		order.Step = ""
		order.Status = "SERVED"
		if coffee != nil {
			order.Served = coffee.Volume()
		}
		st.state.Orders[id] = order
	}
	st.broadcast()
}

// UpdateMachine 记录最新的机器状态
func (st *StateTracker) UpdateMachine(snapshot machine.Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state.Machine = snapshot
	st.broadcast()
}

func (st *StateTracker) broadcast() {
	if st.hub != nil {
		st.hub.BroadcastState(st.copyState())
	}
}

func (st *StateTracker) copyState() GlobalState {
	newState := GlobalState{Machine: st.state.Machine, Orders: make(map[string]OrderState, len(st.state.Orders))}
	for id, o := range st.state.Orders {
		newState.Orders[id] = o
	}
	return newState
}

// GetStateSnapshot 返回当前全局状态的副本
func (st *StateTracker) GetStateSnapshot() GlobalState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.copyState()
}
