package heist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/heist/challenge"
	"github.com/wfunc/heist/logger"
)

// dispatch runs one challenge against the participant holding its role and
// returns the outcome plus, on anything but success, the reason to announce.
func (s *Session) dispatch(p challenge.Puzzle) (challenge.Outcome, string) {
	start := time.Now()
	outcome, reason := s.runChallenge(p)
	s.deps.Observer.ChallengeResolved(p.Kind, outcome, time.Since(start))
	logger.Log.Infof("heist %s: %s challenge %s", s.ID, p.Kind, outcome)
	return outcome, reason
}

func (s *Session) runChallenge(p challenge.Puzzle) (challenge.Outcome, string) {
	role := p.Kind.Role()
	who, err := s.holder(role)
	if err != nil {
		return challenge.OutcomeFailure, fmt.Sprintf("nobody was there to play %s when the %s hit.", role, p.Kind)
	}

	handle, err := s.deps.Channel.Post(s.ctx, fmt.Sprintf("%s! %s %s, you have %s.\n%s",
		headline(p.Kind), role, who.ID, s.cfg.ChallengeTimeout, p.Prompt))
	if err != nil {
		return challenge.OutcomeFailure, "the crew lost contact mid-job."
	}

	ctx, cancel := s.await(who.ID, s.cfg.ChallengeTimeout)
	defer cancel()
	in, err := s.deps.Channel.AwaitInput(ctx, handle, fromParticipant(who.ID))
	switch {
	case err != nil && leftMidWait(ctx):
		return challenge.OutcomeFailure, fmt.Sprintf("the %s walked out in the middle of the %s.", role, p.Kind)
	case err != nil && errors.Is(err, context.DeadlineExceeded) && s.ctx.Err() == nil:
		return challenge.OutcomeTimeout, fmt.Sprintf("the %s ran out of time on the %s.", role, p.Kind)
	case err != nil:
		return challenge.OutcomeFailure, "the crew lost contact mid-job."
	case !p.Check(in.Content):
		return challenge.OutcomeFailure, fmt.Sprintf("the %s fumbled the %s. The answer was %q.", role, p.Kind, p.Answer)
	}

	if err := s.deps.Channel.Edit(s.ctx, handle, fmt.Sprintf("%s cleared by %s.", headline(p.Kind), who.ID)); err != nil {
		logger.Log.Warnf("heist %s: edit challenge message: %v", s.ID, err)
	}
	return challenge.OutcomeSuccess, ""
}

func headline(k challenge.Kind) string {
	switch k {
	case challenge.KindAmbush:
		return "Ambush"
	case challenge.KindTrap:
		return "Trap"
	case challenge.KindSurveillance:
		return "Surveillance"
	default:
		return "Vault lock"
	}
}
