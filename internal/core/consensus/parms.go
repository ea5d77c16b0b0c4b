package consensus

import "time"

// Parms holds the named timing and threshold constants that drive the
// consensus state machine. Field names intentionally match the source
// tokens (ledgerMIN_CLOSE, avMID_CONSENSUS_PCT, ...) so that behavior
// described against those names can be cross-checked directly against
// this struct.
type Parms struct {
	// LedgerMinClose is the minimum time the ledger stays open before it
	// may be closed for liveness reasons alone.
	LedgerMinClose time.Duration

	// LedgerMaxOpen is the maximum time an open ledger stays open before
	// a close is forced regardless of peer activity.
	LedgerMaxOpen time.Duration

	// LedgerMinConsensus is the minimum round time before updateOurPositions
	// is consulted in the establish phase.
	LedgerMinConsensus time.Duration

	// LedgerMaxConsensus is the round-time ceiling beyond which the round
	// is considered Expired.
	LedgerMaxConsensus time.Duration

	// LedgerIdleInterval is the idle gap used for liveness-only closes.
	LedgerIdleInterval time.Duration

	// ProposeFreshness is how long a peer proposal is considered fresh
	// before it is dropped and its dispute votes retracted.
	ProposeFreshness time.Duration

	// ProposeInterval is the minimum spacing between our own successive
	// proposal broadcasts.
	ProposeInterval time.Duration

	// AvMinConsensusTime floors the denominator used to compute
	// convergePercent so a very fast previous round does not make the
	// threshold escalate unrealistically quickly.
	AvMinConsensusTime time.Duration

	// AvMidConsensusTime and AvLateConsensusTime and AvStuckConsensusTime
	// are convergePercent breakpoints (expressed in the same percent-of-
	// prior-round units as convergePercent itself) at which the dispute
	// yes-threshold escalates.
	AvMidConsensusTime   int
	AvLateConsensusTime  int
	AvStuckConsensusTime int

	// AvInitConsensusPct / AvMidConsensusPct / AvLateConsensusPct /
	// AvStuckConsensusPct are the escalating yes-vote thresholds (percent)
	// applied to each dispute as convergePercent crosses the breakpoints
	// above.
	AvInitConsensusPct  int
	AvMidConsensusPct   int
	AvLateConsensusPct  int
	AvStuckConsensusPct int

	// AvCtConsensusPct is the participation percentage required for a
	// single close-time vote to be declared the consensus close time.
	AvCtConsensusPct int

	// MinConsensusPct is the minimum percentage of participants (relative
	// to the previous round's proposer count) and of agreement needed to
	// call Yes in checkConsensus.
	MinConsensusPct int

	// UseRoundedCloseTime controls whether the agreed close time is
	// rounded to the ledger's close time resolution before being voted on.
	UseRoundedCloseTime bool
}

// DefaultParms returns the default consensus parameters.
func DefaultParms() Parms {
	return Parms{
		LedgerMinClose:       2 * time.Second,
		LedgerMaxOpen:        10 * time.Second,
		LedgerMinConsensus:   1950 * time.Millisecond,
		LedgerMaxConsensus:   10 * time.Second,
		LedgerIdleInterval:   15 * time.Second,
		ProposeFreshness:     20 * time.Second,
		ProposeInterval:      2 * time.Second,
		AvMinConsensusTime:   5 * time.Second,
		AvMidConsensusTime:   50,
		AvLateConsensusTime:  85,
		AvStuckConsensusTime: 200,
		AvInitConsensusPct:   50,
		AvMidConsensusPct:    65,
		AvLateConsensusPct:   70,
		AvStuckConsensusPct:  95,
		AvCtConsensusPct:     75,
		MinConsensusPct:      80,
		UseRoundedCloseTime:  true,
	}
}

// ConsensusState classifies the outcome of checkConsensus.
type ConsensusState int

const (
	// ConsensusStateNo means consensus has not been reached yet; keep
	// negotiating.
	ConsensusStateNo ConsensusState = iota

	// ConsensusStateMovedOn means enough peers have already finished this
	// round (on some agreed ledger) that we should stop negotiating and
	// move on, regardless of our own agreement level.
	ConsensusStateMovedOn

	// ConsensusStateExpired means the round has run long enough that we
	// give up waiting for agreement and accept whatever we have.
	ConsensusStateExpired

	// ConsensusStateYes means consensus has been reached.
	ConsensusStateYes
)

func (s ConsensusState) String() string {
	switch s {
	case ConsensusStateNo:
		return "No"
	case ConsensusStateMovedOn:
		return "MovedOn"
	case ConsensusStateExpired:
		return "Expired"
	case ConsensusStateYes:
		return "Yes"
	default:
		return "Unknown"
	}
}
