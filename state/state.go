package state

import (
	"errors"
	"sync"
)

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(fromID, toID string, condition func() bool)
}

// 状态接口
type State interface {
	OnEnter()
	OnExit()
	GetID() string
}

// Any matches every state id in AddTransition.
const Any = "*"

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// 基础状态机实现
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

// ChangeState runs the guard registered for current -> new, if any.
// An exact from/to pair wins over from/Any, which wins over Any/to.
func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if condition := sm.lookup(sm.currentState.GetID(), newState.GetID()); condition != nil && !condition() {
		return ErrTransitionNotAllowed
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) lookup(fromID, toID string) func() bool {
	if conditions, exists := sm.transitions[fromID]; exists {
		if condition, exists := conditions[toID]; exists {
			return condition
		}
		if condition, exists := conditions[Any]; exists {
			return condition
		}
	}
	if conditions, exists := sm.transitions[Any]; exists {
		if condition, exists := conditions[toID]; exists {
			return condition
		}
	}
	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

// AddTransition guards fromID -> toID with condition. Either id may be Any.
func (sm *BaseStateMachine) AddTransition(fromID, toID string, condition func() bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
}

// Base is a State built from optional enter/exit hooks.
type Base struct {
	ID    string
	Enter func()
	Exit  func()
}

func (s *Base) GetID() string {
	return s.ID
}

func (s *Base) OnEnter() {
	if s.Enter != nil {
		s.Enter()
	}
}

func (s *Base) OnExit() {
	if s.Exit != nil {
		s.Exit()
	}
}
