package fsm

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// State 定义订单状态类型
type State string

// Event 定义事件类型
type Event string

const (
	StateQueued     State = "QUEUED"
	StateValidating State = "VALIDATING"
	StateGrinding   State = "GRINDING"
	StatePumping    State = "PUMPING"
	StateServed     State = "SERVED"
	StateFailed     State = "FAILED"
)

const (
	EventStart Event = "START"
	EventGrind Event = "GRIND"
	EventPump  Event = "PUMP"
	EventServe Event = "SERVE"
	EventFail  Event = "FAIL"
)

// transitions 定义状态转移表，FAILED 和 SERVED 为终态
var transitions = fsm.Events{
	{Name: string(EventStart), Src: []string{string(StateQueued)}, Dst: string(StateValidating)},
	{Name: string(EventGrind), Src: []string{string(StateValidating)}, Dst: string(StateGrinding)},
	{Name: string(EventPump), Src: []string{string(StateGrinding)}, Dst: string(StatePumping)},
	{Name: string(EventServe), Src: []string{string(StatePumping)}, Dst: string(StateServed)},
	{Name: string(EventFail), Src: []string{
		string(StateQueued),
		string(StateValidating),
		string(StateGrinding),
		string(StatePumping),
	}, Dst: string(StateFailed)},
}

// FSM 订单生命周期状态机
type FSM struct {
	TargetID  string // 关联的订单 ID
	machine   *fsm.FSM
	callbacks map[State]func(targetID string)
}

func NewFSM(targetID string) *FSM {
	f := &FSM{
		TargetID:  targetID,
		callbacks: make(map[State]func(string)),
	}
	f.machine = fsm.NewFSM(string(StateQueued), transitions, fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			if cb, ok := f.callbacks[State(e.Dst)]; ok {
				cb(f.TargetID)
			}
		},
	})
	return f
}

// Current 返回当前状态
func (f *FSM) Current() State {
	return State(f.machine.Current())
}

// RegisterCallback 注册状态进入时的回调，回调中不要再调用 Fire
func (f *FSM) RegisterCallback(state State, callback func(targetID string)) {
	f.callbacks[state] = callback
}

// Fire 触发事件
func (f *FSM) Fire(ctx context.Context, event Event) error {
	from := f.Current()
	if err := f.machine.Event(ctx, string(event)); err != nil {
		return fmt.Errorf("invalid transition: cannot fire event %s from state %s: %w", event, from, err)
	}
	return nil
}

// IsTerminal 判断订单是否已结束
func (f *FSM) IsTerminal() bool {
	s := f.Current()
	return s == StateServed || s == StateFailed
}
