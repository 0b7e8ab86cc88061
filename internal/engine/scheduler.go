package engine

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"coffee-machine-demo/internal/event"
	"coffee-machine-demo/internal/fsm"
	"coffee-machine-demo/internal/metrics"
	"coffee-machine-demo/internal/persistence"
	"coffee-machine-demo/internal/types"
	"coffee-machine-demo/internal/util"
)

// Scheduler 维护订单优先级队列，并以单个 worker 依次冲泡
// 一台咖啡机同一时刻只冲泡一杯
type Scheduler struct {
	pq         PriorityQueue
	seq        uint64
	engine     *BrewEngine
	mu         sync.Mutex
	cond       *sync.Cond
	orderDelay time.Duration
	wg         sync.WaitGroup
	wal        *persistence.WAL
	eventBus   *event.Bus
	logger     *slog.Logger
}

// NewScheduler 创建一个新的 Scheduler 实例，wal 可为 nil
func NewScheduler(engine *BrewEngine, orderDelayMs int, wal *persistence.WAL, bus *event.Bus, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		pq:         make(PriorityQueue, 0),
		engine:     engine,
		orderDelay: time.Duration(orderDelayMs) * time.Millisecond,
		wal:        wal,
		eventBus:   bus,
		logger:     logger.With("component", "scheduler"),
	}
	s.cond = sync.NewCond(&s.mu)
	engine.OnOrderFinished(s.finish)
	return s
}

// RecoverOrders 从订单日志中恢复未完成的订单，启动时调用
func (s *Scheduler) RecoverOrders() error {
	if s.wal == nil {
		return nil
	}
	orders, err := s.wal.Recover()
	if err != nil {
		return err
	}
	for _, o := range orders {
		s.logger.Info("重新加载未完成的订单", "order_id", o.ID)
		s.submit(o) // 内部提交，不重复写日志
	}
	return nil
}

// SubmitOrder 校验并提交一份订单，先写日志再放入内存队列
func (s *Scheduler) SubmitOrder(o *types.Order) error {
	if o.ID == "" {
		o.ID = util.NewOrderID()
	}
	if err := s.engine.Admit(o); err != nil {
		s.logger.Warn("订单被拒绝", "order_id", o.ID, "error", err)
		return err
	}
	if s.wal != nil {
		if err := s.wal.Append(o); err != nil {
			s.logger.Error("写入订单日志失败", "error", err, "order_id", o.ID)
			return err
		}
	}
	s.submit(o)
	return nil
}

func (s *Scheduler) submit(o *types.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("接收到订单", "order_id", o.ID, "coffee_type", o.CoffeeType, "priority", o.Priority)
	s.seq++
	heap.Push(&s.pq, &Item{Order: o, seq: s.seq})
	metrics.OrdersInQueue.Inc()
	s.eventBus.Publish(event.Event{Type: event.OrderQueued, OrderID: o.ID, Order: o})
	s.cond.Signal()
}

// QueueLength 返回等待中的订单数
func (s *Scheduler) QueueLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pq.Len()
}

// Start 启动调度循环，阻塞直到 ctx 取消且当前订单结束
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		for s.pq.Len() == 0 && ctx.Err() == nil {
			s.cond.Wait()
		}
		if ctx.Err() != nil {
			s.mu.Unlock()
			return
		}

		item := heap.Pop(&s.pq).(*Item)
		metrics.OrdersInQueue.Dec()
		s.mu.Unlock()

		s.run(ctx, item.Order)

		if s.orderDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.orderDelay):
			}
		}
	}
}

func (s *Scheduler) run(ctx context.Context, o *types.Order) {
	traceID := util.NewTraceID()
	orderCtx := util.ContextWithTraceID(ctx, traceID)

	result := s.engine.Process(orderCtx, o)
	if result.Success {
		s.logger.Debug("订单出杯", "order_id", result.OrderID, "trace_id", traceID, "volume", result.Coffee.Volume())
	} else {
		s.logger.Debug("订单失败", "order_id", result.OrderID, "trace_id", traceID, "error", result.Error)
	}
}

// finish 在订单进入终态时标记日志，重启后不再恢复
func (s *Scheduler) finish(o *types.Order, state fsm.State) {
	if s.wal == nil {
		return
	}
	if err := s.wal.Complete(o.ID); err != nil {
		s.logger.Error("标记订单完成失败", "error", err, "order_id", o.ID, "status", state)
	}
}

// WaitForCompletion 等待调度循环退出，正在冲泡的订单会先完成，用于优雅停机
func (s *Scheduler) WaitForCompletion() {
	s.wg.Wait()
}
