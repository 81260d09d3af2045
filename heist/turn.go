package heist

import (
	"context"
	"fmt"

	"github.com/wfunc/heist/challenge"
	"github.com/wfunc/heist/floormap"
	"github.com/wfunc/heist/lobby"
)

// MoveResult describes how one move resolved.
type MoveResult uint8

const (
	MoveRejected         MoveResult = iota // not resolved: another move in flight or session over
	MoveOpen                               // stepped onto open floor
	MoveOutOfBounds                        // tried to leave the grid; nothing happened
	MoveWall                               // bounced off a wall
	MoveStairsLocked                       // stairwell refused, vault not looted yet
	MoveFloorChanged                       // climbed to the next floor
	MoveChallengeCleared                   // obstacle challenge passed
	MoveChallengeFailed                    // challenge failed, session over
	MoveVaultLooted                        // vault challenge passed
	MoveVaultEmpty                         // vault already looted on this floor
)

func (r MoveResult) String() string {
	switch r {
	case MoveRejected:
		return "rejected"
	case MoveOpen:
		return "open"
	case MoveOutOfBounds:
		return "out_of_bounds"
	case MoveWall:
		return "wall"
	case MoveStairsLocked:
		return "stairs_locked"
	case MoveFloorChanged:
		return "floor_changed"
	case MoveChallengeCleared:
		return "challenge_cleared"
	case MoveChallengeFailed:
		return "challenge_failed"
	case MoveVaultLooted:
		return "vault_looted"
	case MoveVaultEmpty:
		return "vault_empty"
	default:
		return "unknown"
	}
}

// promptMove asks the Navigator for a direction. Unparseable replies are
// answered with a hint and the wait continues inside the same deadline.
func (s *Session) promptMove() (floormap.Direction, error) {
	nav, err := s.holder(lobby.RoleNavigator)
	if err != nil {
		return 0, err
	}
	s.enter(PhaseMovePrompt)

	s.mu.Lock()
	prompt := fmt.Sprintf("Floor %d, vaults %d/%d\n%s\nNavigator %s, which way? (up/down/left/right, %s)",
		s.st.Floor, s.st.VaultsObtained, s.cfg.MaxVaults, s.floor.Render(), nav.ID, s.cfg.MoveTimeout)
	s.mu.Unlock()

	handle, err := s.deps.Channel.Post(s.ctx, prompt)
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.await(nav.ID, s.cfg.MoveTimeout)
	defer cancel()
	for {
		in, err := s.deps.Channel.AwaitInput(ctx, handle, fromParticipant(nav.ID))
		if err != nil {
			if leftMidWait(ctx) {
				return 0, context.Cause(ctx)
			}
			return 0, err
		}
		if dir, ok := floormap.ParseDirection(in.Content); ok {
			return dir, nil
		}
		s.post(fmt.Sprintf("%q is not a direction. Try up, down, left or right.", in.Content))
	}
}

// ResolveMove applies one Navigator move. Only one resolution runs at a
// time; a concurrent call gets ErrMoveInFlight.
func (s *Session) ResolveMove(dir floormap.Direction) (MoveResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return MoveRejected, ErrMoveInFlight
	}
	defer s.inFlight.Store(false)

	s.mu.Lock()
	active, started := s.st.Active, s.floor != nil
	s.mu.Unlock()
	if !active {
		return MoveRejected, ErrSessionInactive
	}
	if !started {
		return MoveRejected, ErrNotStarted
	}
	s.enter(PhaseMoveResolving)

	s.mu.Lock()
	from := s.st.Position
	to := dir.Step(from)
	inBounds := s.floor.InBounds(to)
	var terrain floormap.Cell
	if inBounds {
		terrain = s.floor.Terrain(to)
	}
	s.mu.Unlock()

	var result MoveResult
	switch {
	case !inBounds:
		s.post("That way is solid building exterior. Pick another direction.")
		result = MoveOutOfBounds
	case terrain == floormap.CellWall:
		s.post("A wall blocks the way. The crew stays put.")
		result = MoveWall
	case terrain == floormap.CellStairs:
		result = s.climb()
	case terrain == floormap.CellObstacle:
		s.step(from, to)
		result = s.runObstacle(to)
	case terrain == floormap.CellVault:
		s.step(from, to)
		result = s.runVault()
	default:
		s.step(from, to)
		result = MoveOpen
	}

	s.deps.Observer.MoveResolved(result)
	return result, nil
}

func (s *Session) step(from, to floormap.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floor.MovePlayer(from, to)
	s.st.Position = to
}

// climb takes the stairwell if this floor's vault is looted; otherwise the
// move is rejected and the crew stays where it was.
func (s *Session) climb() MoveResult {
	if err := s.enter(PhaseFloorTransition); err != nil {
		s.post("The stairwell door is sealed. Crack this floor's vault first.")
		return MoveStairsLocked
	}

	s.mu.Lock()
	s.st.Floor++
	s.st.VaultLooted = false
	s.floor = s.deps.Maps.Generate(s.st.Floor, false, nil)
	s.st.Position = s.floor.Start()
	s.floor.PlacePlayer(s.st.Position)
	floor := s.st.Floor
	s.mu.Unlock()

	s.post(fmt.Sprintf("The crew slips up the stairwell to floor %d. The halls are wider here.", floor))
	return MoveFloorChanged
}

func (s *Session) runObstacle(at floormap.Position) MoveResult {
	s.enter(PhaseChallenge)
	outcome, reason := s.dispatch(s.deps.Puzzles.Obstacle())

	// Obstacles are one-shot whatever the outcome.
	s.mu.Lock()
	if !s.st.Active {
		s.mu.Unlock()
		return MoveRejected
	}
	s.floor.Clear(at)
	s.floor.PlacePlayer(at)
	s.mu.Unlock()

	if outcome != challenge.OutcomeSuccess {
		s.fail(reason)
		return MoveChallengeFailed
	}
	return MoveChallengeCleared
}

func (s *Session) runVault() MoveResult {
	s.mu.Lock()
	looted := s.st.VaultLooted
	s.mu.Unlock()
	if looted {
		s.post("This vault is already empty. Head for the stairwell.")
		return MoveVaultEmpty
	}

	s.enter(PhaseVaultChallenge)
	outcome, reason := s.dispatch(s.deps.Puzzles.Vault())

	s.mu.Lock()
	if !s.st.Active {
		s.mu.Unlock()
		return MoveRejected
	}
	if outcome != challenge.OutcomeSuccess {
		s.mu.Unlock()
		s.fail(reason)
		return MoveChallengeFailed
	}
	if s.st.VaultsObtained < s.cfg.MaxVaults {
		s.st.VaultsObtained++
	}
	s.st.VaultLooted = true
	obtained := s.st.VaultsObtained
	finished := obtained >= s.cfg.MaxVaults
	if !finished {
		s.floor = s.deps.Maps.Generate(s.st.Floor, true, s.floor)
		s.floor.PlacePlayer(s.st.Position)
	}
	s.mu.Unlock()

	if finished {
		s.succeed()
		return MoveVaultLooted
	}
	s.post(fmt.Sprintf("Vault cracked! %d/%d secured. Alarms shuffle the floor; find the stairwell.", obtained, s.cfg.MaxVaults))
	return MoveVaultLooted
}
