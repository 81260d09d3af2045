package heist

import (
	"context"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wfunc/heist/logger"
)

// Outcome is a session's terminal state.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "none"
	}
}

// Result summarises a finished session.
type Result struct {
	Outcome        Outcome
	Reason         string
	Floor          int
	VaultsObtained int
	PayoutEach     int64
}

var printer = message.NewPrinter(language.English)

func (s *Session) fail(reason string) {
	s.finish(OutcomeFailure, 0, "Heist failed: "+reason)
}

func (s *Session) succeed() {
	s.mu.Lock()
	vaults := s.st.VaultsObtained
	s.mu.Unlock()

	each := s.cfg.RewardPerVault * int64(vaults)
	total := each * int64(len(s.roster))
	summary := printer.Sprintf("Heist complete! %d vault(s) cracked. Each of the %d crew members walks away with %d coins (%d in total).",
		vaults, len(s.roster), each, total)
	s.finish(OutcomeSuccess, each, summary)
}

// finish moves the session to its terminal outcome exactly once: it flips
// Active, cancels every outstanding wait, posts the single terminal message,
// pays out on success and revokes send access. Later calls return false.
func (s *Session) finish(outcome Outcome, payoutEach int64, msg string) bool {
	s.mu.Lock()
	if !s.st.Active {
		s.mu.Unlock()
		return false
	}
	s.st.Active = false
	s.result = Result{
		Outcome:        outcome,
		Reason:         msg,
		Floor:          s.st.Floor,
		VaultsObtained: s.st.VaultsObtained,
		PayoutEach:     payoutEach,
	}
	s.mu.Unlock()

	s.cancel()
	s.enter(PhaseTerminal)
	logger.Log.Infof("heist %s: %s (floor %d, vaults %d/%d)", s.ID, outcome, s.result.Floor, s.result.VaultsObtained, s.cfg.MaxVaults)

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if _, err := s.deps.Channel.Post(ctx, msg); err != nil {
		logger.Log.Warnf("heist %s: post terminal message: %v", s.ID, err)
	}
	if outcome == OutcomeSuccess {
		for _, id := range s.roster.IDs() {
			if err := s.deps.Ledger.Credit(ctx, id, payoutEach); err != nil {
				logger.Log.Errorf("heist %s: credit %d to %s: %v", s.ID, payoutEach, id, err)
			}
		}
	}
	for _, id := range s.roster.IDs() {
		if err := s.deps.Permissions.RevokeSend(ctx, id); err != nil {
			logger.Log.Warnf("heist %s: revoke send from %s: %v", s.ID, id, err)
		}
	}

	s.deps.Observer.SessionFinished(outcome)
	close(s.done)
	return true
}
