// heist/interfaces.go
package heist

import (
	"context"
	"time"

	"github.com/wfunc/heist/challenge"
	"github.com/wfunc/heist/floormap"
)

// MessageHandle identifies a posted message.
type MessageHandle string

// Input is one line a participant sent to the channel.
type Input struct {
	ParticipantID string
	Content       string
	At            time.Time
}

// Channel is the messaging surface the session talks through.
// AwaitInput blocks until an input matching filter arrives after handle was
// posted, or ctx ends; the deadline of a time-boxed wait is carried by ctx.
type Channel interface {
	Post(ctx context.Context, content string) (MessageHandle, error)
	AwaitInput(ctx context.Context, handle MessageHandle, filter func(Input) bool) (Input, error)
	Edit(ctx context.Context, handle MessageHandle, content string) error
}

// Permissions toggles a participant's elevated send access on the session channel.
type Permissions interface {
	GrantSend(ctx context.Context, participantID string) error
	RevokeSend(ctx context.Context, participantID string) error
}

// Ledger pays out rewards. Idempotency across retries is the ledger's concern.
type Ledger interface {
	Credit(ctx context.Context, participantID string, amount int64) error
}

// MapSource builds floors; *floormap.Generator implements it.
type MapSource interface {
	Generate(floor int, regenerate bool, prev *floormap.FloorMap) *floormap.FloorMap
}

// PuzzleSource draws challenges; *challenge.Source implements it.
type PuzzleSource interface {
	Obstacle() challenge.Puzzle
	Vault() challenge.Puzzle
}

// Observer receives session events for metrics.
type Observer interface {
	SessionStarted()
	SessionFinished(outcome Outcome)
	ChallengeResolved(kind challenge.Kind, outcome challenge.Outcome, elapsed time.Duration)
	MoveResolved(result MoveResult)
}

type nopObserver struct{}

func (nopObserver) SessionStarted() {}
func (nopObserver) SessionFinished(Outcome) {}
func (nopObserver) ChallengeResolved(challenge.Kind, challenge.Outcome, time.Duration) {}
func (nopObserver) MoveResolved(MoveResult) {}
