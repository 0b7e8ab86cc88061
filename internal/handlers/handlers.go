package handlers

import (
	"log/slog"

	"coffee-machine-demo/internal/event"
	"coffee-machine-demo/internal/fsm"
	"coffee-machine-demo/internal/machine"
	"coffee-machine-demo/internal/metrics"
	"coffee-machine-demo/internal/web"
)

// RegisterEventHandlers 将所有事件处理器注册到事件总线
// 监控、UI 和审计日志通过事件与冲泡流程解耦
func RegisterEventHandlers(bus *event.Bus, st *web.StateTracker, logger *slog.Logger) {
	// --- 指标处理器 ---
	bus.SubscribeSync(event.BrewCompleted, func(e event.Event) {
		metrics.BrewsTotal.WithLabelValues("success", string(e.Order.CoffeeType)).Inc()
	})
	bus.SubscribeSync(event.BrewFailed, func(e event.Event) {
		metrics.BrewsTotal.WithLabelValues("failed", string(e.Order.CoffeeType)).Inc()
	})
	bus.SubscribeSync(event.StepCompleted, func(e event.Event) {
		metrics.StepDuration.WithLabelValues(string(e.Step)).Observe(e.Duration.Seconds())
	})
	for _, t := range []event.EventType{event.StepCompleted, event.BrewFailed, event.MachineFault, event.TankRefilled, event.MachinePlugged} {
		bus.SubscribeSync(t, func(e event.Event) {
			recordMachine(e.Machine)
		})
	}

	// --- Web UI 处理器 ---
	bus.SubscribeSync(event.OrderQueued, func(e event.Event) {
		st.AddOrder(e.Order)
	})
	bus.SubscribeSync(event.BrewStarted, func(e event.Event) {
		st.UpdateOrderState(e.OrderID, "", string(fsm.StateValidating), nil)
	})
	bus.SubscribeSync(event.StepStarted, func(e event.Event) {
		status := fsm.StateGrinding
		if e.Step == machine.StepPumping {
			status = fsm.StatePumping
		}
		st.UpdateOrderState(e.OrderID, e.Step, string(status), nil)
	})
	bus.SubscribeSync(event.BrewCompleted, func(e event.Event) {
		st.ServeOrder(e.OrderID, e.Coffee)
		st.UpdateMachine(e.Machine)
	})
	bus.SubscribeSync(event.BrewFailed, func(e event.Event) {
		st.UpdateOrderState(e.OrderID, "", string(fsm.StateFailed), e.Error)
		st.UpdateMachine(e.Machine)
	})
	for _, t := range []event.EventType{event.StepCompleted, event.MachineFault, event.TankRefilled, event.MachinePlugged} {
		bus.SubscribeSync(t, func(e event.Event) {
			st.UpdateMachine(e.Machine)
		})
	}

	// --- 日志处理器 ---
	bus.Subscribe(event.BrewFailed, func(e event.Event) {
		logger.Error("订单处理失败", "order_id", e.OrderID, "error", e.Error)
	})
	bus.Subscribe(event.BrewCompleted, func(e event.Event) {
		logger.Info("订单处理成功", "order_id", e.OrderID, "coffee", e.Coffee)
	})
	bus.Subscribe(event.MachineFault, func(e event.Event) {
		logger.Error("咖啡机故障，停止接单")
	})
}

func recordMachine(s machine.Snapshot) {
	metrics.TankLevel.WithLabelValues("water").Set(s.WaterVolume)
	metrics.TankLevel.WithLabelValues("beans").Set(s.BeanVolume)
	if s.OutOfOrder {
		metrics.MachineOutOfOrder.Set(1)
	} else {
		metrics.MachineOutOfOrder.Set(0)
	}
}
