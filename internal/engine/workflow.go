package engine

import (
	"context"
	"log/slog"
	"time"

	"coffee-machine-demo/internal/cupboard"
	"coffee-machine-demo/internal/event"
	"coffee-machine-demo/internal/fsm"
	"coffee-machine-demo/internal/machine"
	"coffee-machine-demo/internal/types"
	"coffee-machine-demo/internal/util"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"github.com/pkg/errors"
)

var (
	// ErrMachineOutOfOrder 表示机器已故障，不再接受订单
	ErrMachineOutOfOrder = errors.New("coffee machine is out of order")
	// ErrOrderRejected 表示订单未通过准入规则
	ErrOrderRejected = errors.New("order rejected by admission rule")
)

// rule 是编译后的准入规则
type rule struct {
	source  string
	program *vm.Program
}

// BrewEngine 负责把一份订单交给咖啡机冲泡，并驱动订单状态机
type BrewEngine struct {
	machine    *machine.CoffeeMachine
	rules      []rule
	faultCheck bool
	logger     *slog.Logger
	eventBus   *event.Bus
	onFinished FinishFunc
}

// NewBrewEngine 创建一个新的 BrewEngine 实例，准入规则在此时编译
func NewBrewEngine(
	m *machine.CoffeeMachine,
	admissionRules []string,
	faultCheckAfterBrew bool,
	logger *slog.Logger,
	bus *event.Bus,
) (*BrewEngine, error) {
	env := map[string]interface{}{"order": (&types.Order{}).RuleEnv()}

	rules := make([]rule, 0, len(admissionRules))
	for _, source := range admissionRules {
		program, err := expr.Compile(source, expr.Env(env), expr.AsBool())
		if err != nil {
			return nil, errors.Wrapf(err, "compile admission rule %q", source)
		}
		rules = append(rules, rule{source: source, program: program})
	}

	return &BrewEngine{
		machine:    m,
		rules:      rules,
		faultCheck: faultCheckAfterBrew,
		logger:     logger.With("component", "brew_engine"),
		eventBus:   bus,
	}, nil
}

// Machine 返回引擎驱动的咖啡机
func (e *BrewEngine) Machine() *machine.CoffeeMachine {
	return e.machine
}

// Admit 在订单入队前检查机器状态、订单参数和准入规则
func (e *BrewEngine) Admit(o *types.Order) error {
	if e.machine.IsOutOfOrder() {
		return ErrMachineOutOfOrder
	}
	if _, err := cupboard.NewContainer(o.Container.Kind, o.Container.Capacity); err != nil {
		return err
	}
	coffeeType, err := cupboard.ParseCoffeeType(string(o.CoffeeType))
	if err != nil {
		return err
	}
	o.CoffeeType = coffeeType

	env := map[string]interface{}{"order": o.RuleEnv()}
	for _, r := range e.rules {
		out, err := expr.Run(r.program, env)
		if err != nil {
			return errors.Wrapf(err, "evaluate admission rule %q", r.source)
		}
		if ok, _ := out.(bool); !ok {
			return errors.Wrapf(ErrOrderRejected, "%s", r.source)
		}
	}
	return nil
}

// FinishFunc 在订单进入终态 (SERVED 或 FAILED) 时调用
type FinishFunc func(o *types.Order, state fsm.State)

// OnOrderFinished 注册订单结束回调，须在调度开始前调用
func (e *BrewEngine) OnOrderFinished(fn FinishFunc) {
	e.onFinished = fn
}

// Process 执行一份订单的冲泡流程，阻塞直到出杯或失败
func (e *BrewEngine) Process(ctx context.Context, o *types.Order) types.Result {
	logger := e.logger.With("order_id", o.ID, "coffee_type", o.CoffeeType)
	if traceID, ok := util.TraceIDFromContext(ctx); ok {
		logger = logger.With("trace_id", traceID)
	}

	o.FSM = fsm.NewFSM(o.ID)
	o.Status = string(o.FSM.Current())
	for _, state := range []fsm.State{fsm.StateServed, fsm.StateFailed} {
		o.FSM.RegisterCallback(state, func(string) {
			if e.onFinished != nil {
				e.onFinished(o, state)
			}
		})
	}

	if e.machine.IsOutOfOrder() {
		return e.fail(ctx, o, logger, ErrMachineOutOfOrder)
	}

	e.fire(ctx, o, logger, fsm.EventStart)
	e.eventBus.Publish(event.Event{Type: event.BrewStarted, OrderID: o.ID, Order: o})
	logger.Info("开始冲泡", "container", o.Container.Kind, "capacity", o.Container.Capacity)

	container, err := cupboard.NewContainer(o.Container.Kind, o.Container.Capacity)
	if err != nil {
		return e.fail(ctx, o, logger, err)
	}

	observer := &stepObserver{ctx: ctx, engine: e, order: o, logger: logger}
	coffee, err := e.machine.Brew(container, o.CoffeeType, observer)
	if err != nil {
		return e.fail(ctx, o, logger, err)
	}

	e.fire(ctx, o, logger, fsm.EventServe)
	e.eventBus.Publish(event.Event{Type: event.BrewCompleted, OrderID: o.ID, Order: o, Coffee: coffee, Machine: e.machine.Snapshot()})
	logger.Info("出杯完成", "volume", coffee.Volume())

	if e.faultCheck && e.machine.CoffeeMachineFailure() {
		e.eventBus.Publish(event.Event{Type: event.MachineFault, Machine: e.machine.Snapshot()})
	}

	return types.Result{OrderID: o.ID, Success: true, Coffee: coffee}
}

// fire 推进订单状态机，终态订单不再转移
func (e *BrewEngine) fire(ctx context.Context, o *types.Order, logger *slog.Logger, ev fsm.Event) {
	if o.FSM.IsTerminal() {
		logger.Warn("订单已结束，忽略状态事件", "event", ev, "status", o.FSM.Current())
		return
	}
	if err := o.FSM.Fire(ctx, ev); err != nil {
		logger.Error("订单状态转移失败", "error", err)
	}
	o.Status = string(o.FSM.Current())
}

func (e *BrewEngine) fail(ctx context.Context, o *types.Order, logger *slog.Logger, err error) types.Result {
	e.fire(ctx, o, logger, fsm.EventFail)
	e.eventBus.Publish(event.Event{Type: event.BrewFailed, OrderID: o.ID, Order: o, Machine: e.machine.Snapshot(), Error: err})
	logger.Warn("冲泡失败", "error", err)
	return types.Result{OrderID: o.ID, Success: false, Error: err}
}

// stepObserver 把咖啡机的物理阶段映射为订单状态转移和事件
type stepObserver struct {
	ctx    context.Context
	engine *BrewEngine
	order  *types.Order
	logger *slog.Logger
}

func (s *stepObserver) StepStarted(step machine.Step) {
	switch step {
	case machine.StepGrinding:
		s.engine.fire(s.ctx, s.order, s.logger, fsm.EventGrind)
	case machine.StepPumping:
		s.engine.fire(s.ctx, s.order, s.logger, fsm.EventPump)
	}
	s.engine.eventBus.Publish(event.Event{Type: event.StepStarted, OrderID: s.order.ID, Order: s.order, Step: step})
}

func (s *stepObserver) StepCompleted(step machine.Step, elapsed time.Duration) {
	s.order.History = append(s.order.History, string(step))
	s.logger.Debug("阶段完成", "step", step, "elapsed", elapsed)
	s.engine.eventBus.Publish(event.Event{
		Type:     event.StepCompleted,
		OrderID:  s.order.ID,
		Order:    s.order,
		Step:     step,
		Duration: elapsed,
		Machine:  s.engine.machine.Snapshot(),
	})
}
