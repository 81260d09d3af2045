// lobby/lobby.go
package lobby

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// JoinStatus is the answer to a join request.
type JoinStatus int

const (
	JoinAccepted JoinStatus = iota
	JoinDuplicate
	JoinClosed
)

func (s JoinStatus) String() string {
	switch s {
	case JoinAccepted:
		return "accepted"
	case JoinDuplicate:
		return "duplicate"
	case JoinClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Result tells whether the recruitment window produced a full crew.
type Result int

const (
	ResultIncomplete Result = iota
	ResultFull
)

func (r Result) String() string {
	if r == ResultFull {
		return "full"
	}
	return "incomplete"
}

// Lobby hands out the four roles to the first four distinct joiners.
type Lobby struct {
	mu        sync.Mutex
	rng       *rand.Rand
	remaining []Role
	roster    Roster
	closed    bool
	full      chan struct{}
}

// New creates an open lobby.
func New(rng *rand.Rand) *Lobby {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Lobby{
		rng:       rng,
		remaining: append([]Role(nil), Roles...),
		full:      make(chan struct{}),
	}
}

// Join assigns a random untaken role to id. Repeated joins by the same id
// return JoinDuplicate with the role already held.
func (l *Lobby) Join(id string) (JoinStatus, Role) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.roster.Member(id); ok {
		return JoinDuplicate, p.Role
	}
	if l.closed || len(l.remaining) == 0 {
		return JoinClosed, 0
	}

	i := l.rng.Intn(len(l.remaining))
	role := l.remaining[i]
	l.remaining = append(l.remaining[:i], l.remaining[i+1:]...)
	l.roster = append(l.roster, Participant{ID: id, Role: role})

	if len(l.remaining) == 0 {
		l.closed = true
		close(l.full)
	}
	return JoinAccepted, role
}

// Wait blocks until every role is taken, the window d elapses or ctx ends,
// then closes the lobby.
func (l *Lobby) Wait(ctx context.Context, d time.Duration) (Roster, Result) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-l.full:
	case <-timer.C:
	case <-ctx.Done():
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	roster := append(Roster(nil), l.roster...)
	if roster.Complete() {
		return roster, ResultFull
	}
	return roster, ResultIncomplete
}

// Roster returns a copy of the crew so far.
func (l *Lobby) Roster() Roster {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append(Roster(nil), l.roster...)
}
