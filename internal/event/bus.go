package event

import (
	"sync"
	"time"

	"coffee-machine-demo/internal/cupboard"
	"coffee-machine-demo/internal/machine"
	"coffee-machine-demo/internal/types"
)

// EventType 定义事件的类型
type EventType string

// 定义所有业务事件类型
const (
	OrderQueued    EventType = "OrderQueued"    // 订单进入队列
	BrewStarted    EventType = "BrewStarted"    // 开始冲泡
	StepStarted    EventType = "StepStarted"    // 研磨或泵水开始
	StepCompleted  EventType = "StepCompleted"  // 研磨或泵水完成
	BrewCompleted  EventType = "BrewCompleted"  // 冲泡成功
	BrewFailed     EventType = "BrewFailed"     // 冲泡失败
	MachineFault   EventType = "MachineFault"   // 机器进入故障
	TankRefilled   EventType = "TankRefilled"   // 水箱或豆仓补充
	MachinePlugged EventType = "MachinePlugged" // 接通电源
)

// Event 结构体定义了事件的数据负载
type Event struct {
	Type     EventType                // 事件类型
	OrderID  string                   // 关联的订单 ID
	Order    *types.Order             // 完整的订单数据
	Step     machine.Step             // 冲泡阶段 (仅步骤相关事件)
	Duration time.Duration            // 阶段耗时 (仅 StepCompleted)
	Coffee   cupboard.CoffeeContainer // 装好咖啡的容器 (仅 BrewCompleted)
	Machine  machine.Snapshot         // 事件发生后的机器状态
	Error    error                    // 错误信息 (仅失败事件)
}

// Handler 是事件处理函数的签名
type Handler func(e Event)

// Bus 是一个简单的内存事件总线
type Bus struct {
	mu           sync.RWMutex
	handlers     map[EventType][]Handler // 异步处理器
	syncHandlers map[EventType][]Handler // 同步处理器，按发布顺序执行
}

// NewBus 创建一个新的事件总线实例
func NewBus() *Bus {
	return &Bus{
		handlers:     make(map[EventType][]Handler),
		syncHandlers: make(map[EventType][]Handler),
	}
}

// SubscribeSync 订阅一个事件，处理器在 Publish 中同步执行
// 用于依赖事件顺序的状态更新，处理器必须快速返回且不能再订阅
func (b *Bus) SubscribeSync(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncHandlers[eventType] = append(b.syncHandlers[eventType], handler)
}

// Subscribe 订阅一个特定类型的事件
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish 发布一个事件，先执行同步处理器，异步处理器不阻塞冲泡流程
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, handler := range b.syncHandlers[e.Type] {
		handler(e)
	}
	for _, handler := range b.handlers[e.Type] {
		go handler(e)
	}
}
