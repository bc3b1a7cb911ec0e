package agent

import (
	"fmt"
	"time"
)

// State 定义 Worker 生命周期状态
type State string

const (
	StateIdle      State = "idle"      // Initial
	StateSpawned   State = "spawned"   // Registered with a pool
	StateWorking   State = "working"   // Executing a task
	StateWaiting   State = "waiting"   // Waiting for a child worker or external input
	StateCompleted State = "completed" // Completed
	StateFailed    State = "failed"    // Failed
	StateDestroyed State = "destroyed" // Terminal
)

// validTransitions 定义合法的状态转换
var validTransitions = map[State][]State{
	StateIdle:      {StateSpawned, StateDestroyed},
	StateSpawned:   {StateWorking, StateDestroyed},
	StateWorking:   {StateWaiting, StateCompleted, StateFailed, StateDestroyed},
	StateWaiting:   {StateCompleted, StateFailed, StateDestroyed}, // Resumption is the caller's responsibility
	StateCompleted: {StateWorking, StateDestroyed},                // 支持重新执行
	StateFailed:    {StateWorking, StateDestroyed},                // 支持重试
	StateDestroyed: {},                                            // Terminal: no way out
}

// CanTransition 检查状态转换是否合法
func CanTransition(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal 报告状态是否已不再占用池中配额（completed/failed/destroyed）。
func IsTerminal(s State) bool {
	return s == StateCompleted || s == StateFailed || s == StateDestroyed
}

// ErrInvalidTransition 非法状态转换错误
type ErrInvalidTransition struct {
	From State
	To   State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

// StateChange 单次状态转换记录，进入 Worker 的有界审计日志。
type StateChange struct {
	From      State     `json:"from_state"`
	To        State     `json:"to_state"`
	Timestamp time.Time `json:"timestamp"`
}

// Action 单次动作记录（execute_start、role_switch、spawn_child 等）。
type Action struct {
	Name      string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	Role      string         `json:"role"`
	Timestamp time.Time      `json:"timestamp"`
}
