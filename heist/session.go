// heist/session.go
package heist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/heist/challenge"
	"github.com/wfunc/heist/floormap"
	"github.com/wfunc/heist/lobby"
	"github.com/wfunc/heist/logger"
	"github.com/wfunc/heist/state"
)

var (
	// ErrMoveInFlight is returned when a move is submitted while another is resolving.
	ErrMoveInFlight = errors.New("heist: a move is already being resolved")
	// ErrSessionInactive is returned for moves after the session reached a terminal outcome.
	ErrSessionInactive = errors.New("heist: session is no longer active")
	// ErrNotStarted is returned for moves before Run has laid out the first floor.
	ErrNotStarted = errors.New("heist: session has not started")

	errRoleMissing = errors.New("heist: role holder missing")
)

// 会话阶段
const (
	PhaseBriefing        = "briefing"
	PhaseMovePrompt      = "move_prompt"
	PhaseMoveResolving   = "move_resolving"
	PhaseChallenge       = "challenge"
	PhaseVaultChallenge  = "vault_challenge"
	PhaseFloorTransition = "floor_transition"
	PhaseTerminal        = "terminal"
)

var phaseIDs = []string{
	PhaseBriefing, PhaseMovePrompt, PhaseMoveResolving, PhaseChallenge,
	PhaseVaultChallenge, PhaseFloorTransition, PhaseTerminal,
}

// notifyTimeout bounds the terminal notifications, which run after the
// session context has been cancelled.
const notifyTimeout = 5 * time.Second

// Config holds the per-session tunables.
type Config struct {
	MaxVaults        int
	BaseSize         int
	MoveTimeout      time.Duration
	ChallengeTimeout time.Duration
	RewardPerVault   int64
}

// DefaultConfig returns the stock heist settings.
func DefaultConfig() Config {
	return Config{
		MaxVaults:        3,
		BaseSize:         4,
		MoveTimeout:      10 * time.Second,
		ChallengeTimeout: 15 * time.Second,
		RewardPerVault:   1000,
	}
}

// Deps are the collaborators a session drives. Maps, Puzzles and Observer
// are optional.
type Deps struct {
	Channel     Channel
	Permissions Permissions
	Ledger      Ledger
	Maps        MapSource
	Puzzles     PuzzleSource
	Observer    Observer
}

// SessionState is a point-in-time copy of a session's progress.
type SessionState struct {
	Active         bool
	Phase          string
	Floor          int
	VaultsObtained int
	MaxVaults      int
	Position       floormap.Position
	VaultLooted    bool
	MoveInFlight   bool
}

// Session is one heist run, from briefing to a terminal outcome.
type Session struct {
	ID string

	cfg    Config
	roster lobby.Roster
	deps   Deps

	machine *state.BaseStateMachine
	phases  map[string]*state.Base

	mu     sync.Mutex
	st     SessionState
	floor  *floormap.FloorMap
	absent map[string]bool
	result Result

	// 当前等待的参与者，缺席时立即取消
	waitingOn  string
	cancelWait context.CancelCauseFunc

	inFlight atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// New prepares a session for roster. The session is active from creation.
func New(cfg Config, roster lobby.Roster, deps Deps) *Session {
	if deps.Maps == nil {
		deps.Maps = floormap.NewGenerator(cfg.BaseSize, cfg.MaxVaults, nil)
	}
	if deps.Puzzles == nil {
		deps.Puzzles = challenge.NewSource(nil)
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}

	s := &Session{
		ID:     uuid.New().String(),
		cfg:    cfg,
		roster: append(lobby.Roster(nil), roster...),
		deps:   deps,
		absent: make(map[string]bool),
		done:   make(chan struct{}),
		st: SessionState{
			Active:    true,
			MaxVaults: cfg.MaxVaults,
		},
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.phases = make(map[string]*state.Base, len(phaseIDs))
	for _, id := range phaseIDs {
		id := id
		s.phases[id] = &state.Base{ID: id, Enter: func() { s.onPhase(id) }}
	}
	s.machine = state.NewBaseStateMachine(s.phases[PhaseBriefing])
	s.machine.AddTransition(PhaseTerminal, state.Any, func() bool { return false })
	s.machine.AddTransition(state.Any, PhaseFloorTransition, s.canClimb)
	return s
}

func (s *Session) onPhase(id string) {
	s.mu.Lock()
	s.st.Phase = id
	s.mu.Unlock()
	logger.Log.Debugf("heist %s: phase %s", s.ID, id)
}

// canClimb guards the stairwell: a floor is only left once its vault is looted.
func (s *Session) canClimb() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.VaultsObtained == s.st.Floor
}

func (s *Session) enter(phase string) error {
	return s.machine.ChangeState(s.phases[phase])
}

// Run drives the session until it succeeds or fails. Cancelling ctx fails
// the session.
func (s *Session) Run(ctx context.Context) Result {
	if !s.isActive() {
		<-s.done
		return s.Result()
	}
	stop := context.AfterFunc(ctx, func() { s.fail("the job was called off") })
	defer stop()

	s.deps.Observer.SessionStarted()
	logger.Log.Infof("heist %s: starting with crew %v", s.ID, s.roster)

	for _, id := range s.roster.IDs() {
		if err := s.deps.Permissions.GrantSend(s.ctx, id); err != nil {
			logger.Log.Warnf("heist %s: grant send to %s: %v", s.ID, id, err)
		}
	}

	s.mu.Lock()
	s.st.Floor = 1
	s.floor = s.deps.Maps.Generate(1, false, nil)
	s.st.Position = s.floor.Start()
	s.floor.PlacePlayer(s.st.Position)
	s.mu.Unlock()

	s.brief()

	for s.isActive() {
		dir, err := s.promptMove()
		if err != nil {
			s.fail(s.moveFailure(err))
			break
		}
		if _, err := s.ResolveMove(dir); err != nil && !errors.Is(err, ErrSessionInactive) {
			logger.Log.Warnf("heist %s: resolve move: %v", s.ID, err)
		}
	}

	<-s.done
	return s.Result()
}

func (s *Session) brief() {
	var crew []string
	for _, p := range s.roster {
		crew = append(crew, fmt.Sprintf("%s: %s", p.Role, p.ID))
	}
	s.post(fmt.Sprintf("The crew assembles. %s.\nCrack %d vault(s). One wrong answer or one missed deadline and the alarm goes off.",
		strings.Join(crew, ", "), s.cfg.MaxVaults))
}

func (s *Session) moveFailure(err error) string {
	switch {
	case errors.Is(err, errRoleMissing):
		return "the Navigator walked out on the crew."
	case errors.Is(err, context.DeadlineExceeded):
		return "the Navigator froze and the guards closed in."
	default:
		return "the crew lost contact."
	}
}

// Abort fails the session from outside. Repeated calls have no further effect.
func (s *Session) Abort(reason string) {
	s.fail(reason)
}

// MarkAbsent records that a participant left; their role can no longer answer.
// A prompt or challenge waiting on them ends at once.
func (s *Session) MarkAbsent(participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.absent[participantID] = true
	if s.cancelWait != nil && s.waitingOn == participantID {
		s.cancelWait(errRoleMissing)
	}
}

// await scopes a wait on one participant. It ends at the deadline, with the
// session, or as soon as the participant is marked absent.
func (s *Session) await(participantID string, d time.Duration) (context.Context, context.CancelFunc) {
	timeout, cancelTimeout := context.WithTimeout(s.ctx, d)
	ctx, cancel := context.WithCancelCause(timeout)

	s.mu.Lock()
	s.waitingOn, s.cancelWait = participantID, cancel
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		s.waitingOn, s.cancelWait = "", nil
		s.mu.Unlock()
		cancel(nil)
		cancelTimeout()
	}
}

// leftMidWait reports whether ctx ended because its participant left.
func leftMidWait(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), errRoleMissing)
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.st
	st.MoveInFlight = s.inFlight.Load()
	return st
}

// Floor returns the current map. Callers must not mutate it.
func (s *Session) Floor() *floormap.FloorMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.floor
}

// Roster returns the crew.
func (s *Session) Roster() lobby.Roster {
	return append(lobby.Roster(nil), s.roster...)
}

// Done is closed once the terminal outcome has been fully processed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result returns the terminal outcome; zero until the session ends.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Session) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Active
}

func (s *Session) holder(role lobby.Role) (lobby.Participant, error) {
	p, ok := s.roster.Holder(role)
	if !ok {
		return lobby.Participant{}, fmt.Errorf("%w: %s", errRoleMissing, role)
	}
	s.mu.Lock()
	gone := s.absent[p.ID]
	s.mu.Unlock()
	if gone {
		return lobby.Participant{}, fmt.Errorf("%w: %s left", errRoleMissing, role)
	}
	return p, nil
}

func (s *Session) post(content string) (MessageHandle, error) {
	handle, err := s.deps.Channel.Post(s.ctx, content)
	if err != nil {
		logger.Log.Warnf("heist %s: post: %v", s.ID, err)
	}
	return handle, err
}

func fromParticipant(id string) func(Input) bool {
	return func(in Input) bool { return in.ParticipantID == id }
}
