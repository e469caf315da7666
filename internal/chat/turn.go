package chat

import (
	"context"
	"log/slog"
	"sync"

	"github.com/qmuntal/stateless"

	"github.com/comigor/chatview/internal/conversation"
)

// Turn states
type TurnState stateless.State

var (
	TurnIdle        TurnState = "Idle"
	TurnRequesting  TurnState = "Requesting"  // reply endpoint called, no body yet
	TurnStreaming   TurnState = "Streaming"   // tokens flowing into the placeholder
	TurnReconciling TurnState = "Reconciling" // re-fetching an image tool result
)

// Turn triggers
type TurnTrigger stateless.Trigger

var (
	TriggerSubmit         TurnTrigger = "Submit"
	TriggerResponseOpened TurnTrigger = "ResponseOpened"
	TriggerImageDetected  TurnTrigger = "ImageDetected"
	TriggerSettled        TurnTrigger = "Settled"
	TriggerFailed         TurnTrigger = "Failed"
)

// turnMachine tracks the assistant turn of one session. Every turn gets a
// sequence number; triggers fired by a superseded turn are dropped so an
// aborted reply cannot move the machine under the one that replaced it.
type turnMachine struct {
	mu  sync.Mutex
	fsm *stateless.StateMachine
	seq uint64
}

func newTurnMachine(log *slog.Logger) *turnMachine {
	fsm := stateless.NewStateMachine(TurnIdle)

	fsm.Configure(TurnIdle).
		Permit(TriggerSubmit, TurnRequesting)

	fsm.Configure(TurnRequesting).
		PermitReentry(TriggerSubmit).
		Permit(TriggerResponseOpened, TurnStreaming).
		Permit(TriggerFailed, TurnIdle)

	fsm.Configure(TurnStreaming).
		Permit(TriggerSubmit, TurnRequesting).
		Permit(TriggerImageDetected, TurnReconciling).
		Permit(TriggerSettled, TurnIdle).
		Permit(TriggerFailed, TurnIdle)

	fsm.Configure(TurnReconciling).
		Permit(TriggerSubmit, TurnRequesting).
		Permit(TriggerSettled, TurnIdle).
		Permit(TriggerFailed, TurnIdle)

	fsm.OnTransitioned(func(_ context.Context, t stateless.Transition) {
		log.Debug("turn transition", "from", t.Source, "to", t.Destination, "trigger", t.Trigger)
	})

	return &turnMachine{fsm: fsm}
}

// begin starts a new turn. Unless preempt is set it refuses while another turn
// is still running.
func (m *turnMachine) begin(preempt bool) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !preempt && m.fsm.MustState() != TurnIdle {
		return 0, conversation.ErrBusy
	}
	if err := m.fsm.Fire(TriggerSubmit); err != nil {
		return 0, err
	}
	m.seq++
	return m.seq, nil
}

// fire moves the machine on behalf of turn; it is a no-op for stale turns.
func (m *turnMachine) fire(turn uint64, trigger TurnTrigger) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if turn != m.seq {
		return
	}
	if ok, _ := m.fsm.CanFire(trigger); !ok {
		return
	}
	_ = m.fsm.Fire(trigger)
}

func (m *turnMachine) state() TurnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return TurnState(m.fsm.MustState())
}
