// Package challenge generates the role-gated puzzles a crew must clear and
// checks the answers given to them.
package challenge

import (
	"strconv"
	"strings"

	"github.com/wfunc/heist/lobby"
)

// Kind identifies one of the four challenge mini-games.
type Kind int

const (
	KindAmbush Kind = iota
	KindTrap
	KindSurveillance
	KindVault
)

// ObstacleKinds are the challenges an obstacle cell may roll.
var ObstacleKinds = []Kind{KindAmbush, KindTrap, KindSurveillance}

func (k Kind) String() string {
	switch k {
	case KindAmbush:
		return "ambush"
	case KindTrap:
		return "trap"
	case KindSurveillance:
		return "surveillance"
	case KindVault:
		return "vault"
	default:
		return "unknown"
	}
}

// Role returns the role that must answer a challenge of this kind.
func (k Kind) Role() lobby.Role {
	switch k {
	case KindAmbush:
		return lobby.RoleGunner
	case KindTrap:
		return lobby.RoleTrapper
	case KindSurveillance:
		return lobby.RoleScout
	default:
		return lobby.RoleNavigator
	}
}

// Outcome is how a challenge ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Puzzle is one generated challenge. Answer is the canonical solution.
type Puzzle struct {
	Kind   Kind
	Prompt string
	Answer string
}

// Check reports whether response solves the puzzle.
func (p Puzzle) Check(response string) bool {
	switch p.Kind {
	case KindAmbush:
		return strings.EqualFold(strings.TrimSpace(response), p.Answer)
	case KindTrap:
		got, err := strconv.Atoi(strings.TrimSpace(response))
		if err != nil {
			return false
		}
		want, err := strconv.Atoi(p.Answer)
		return err == nil && got == want
	case KindSurveillance:
		got, ok := parseInts(response)
		if !ok {
			return false
		}
		want, _ := parseInts(p.Answer)
		if len(got) != len(want) {
			return false
		}
		for i := range got {
			if got[i] != want[i] {
				return false
			}
		}
		return true
	case KindVault:
		return normalizeCode(response) == normalizeCode(p.Answer)
	default:
		return false
	}
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

func parseInts(s string) ([]int, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	if len(fields) == 0 {
		return nil, false
	}
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}
