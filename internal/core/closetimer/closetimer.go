// Package closetimer decides when an open ledger should close and whether
// a consensus round has reached agreement. Both functions are pure: they
// take a snapshot of round state and return a decision, with no side
// effects and no access to wall-clock time beyond what is passed in.
package closetimer

import (
	"time"

	"github.com/coreledger/ledgerd/internal/core/consensus"
)

// ShouldClose decides whether the open ledger should be closed now.
//
// anyTransactions is true if the open ledger holds any transactions.
// prevProposers is the number of proposers that participated in the prior
// round. proposersClosed is the number of current-round peers that have
// already closed (i.e. proposed). proposersValidated is the number of
// peers that have validated past our previous ledger. prevRoundTime is
// the duration of the prior round, sinceClose is how long it has been
// since the previous ledger's close time, openTime is how long the
// current ledger has been open, and idleInterval is the liveness-close
// idle threshold (already widened to at least 2x the close resolution by
// the caller, matching phaseOpen in the source).
//
// The result is monotone in openTime holding all other inputs fixed:
// every branch below only becomes *more* likely to return true as
// openTime grows, and no branch becomes false again once true.
func ShouldClose(
	anyTransactions bool,
	prevProposers int,
	proposersClosed int,
	proposersValidated int,
	prevRoundTime time.Duration,
	sinceClose time.Duration,
	openTime time.Duration,
	idleInterval time.Duration,
	parms consensus.Parms,
) bool {
	if sinceClose < parms.LedgerMinClose {
		return false
	}

	if prevRoundTime < 0 {
		prevRoundTime = 0
	} else if prevRoundTime > parms.LedgerIdleInterval {
		prevRoundTime = parms.LedgerIdleInterval
	}

	if openTime < parms.LedgerMinClose {
		return false
	}

	if prevProposers > 0 && proposersClosed >= participantsNeeded(prevProposers, 50)+1 {
		return true
	}

	if anyTransactions && openTime >= parms.LedgerMinClose {
		quorum := participantsNeeded(prevProposers, parms.MinConsensusPct)
		if proposersValidated >= quorum {
			return true
		}
	}

	if sinceClose >= idleInterval {
		return true
	}

	if openTime >= parms.LedgerMaxOpen {
		return true
	}

	return false
}

// participantsNeeded rounds participants*percent/100 to the nearest
// integer (halves round up), floored at 1.
func participantsNeeded(participants, percent int) int {
	result := ((participants * percent) + 50) / 100
	if result == 0 {
		return 1
	}
	return result
}

// CheckConsensus classifies the current state of negotiation.
//
// prevProposers is the proposer count from the prior round; currentProposers,
// currentAgree and currentFinished are this round's counts of participants,
// participants agreeing with our position, and participants that have
// already finished (moved on to a ledger past this one). currentAgreeTime
// is the current round's duration.
func CheckConsensus(
	prevProposers int,
	currentProposers int,
	currentAgree int,
	currentFinished int,
	currentAgreeTime time.Duration,
	parms consensus.Parms,
) consensus.ConsensusState {
	if currentAgreeTime < parms.LedgerMinConsensus {
		return consensus.ConsensusStateNo
	}

	if currentProposers < participantsNeeded(prevProposers, parms.MinConsensusPct) {
		if currentFinished >= participantsNeeded(prevProposers, parms.MinConsensusPct) {
			return consensus.ConsensusStateMovedOn
		}
		if currentAgreeTime >= parms.LedgerMaxConsensus {
			return consensus.ConsensusStateExpired
		}
		return consensus.ConsensusStateNo
	}

	agreement := 0
	if currentProposers > 0 {
		agreement = participantsNeeded(currentProposers, parms.MinConsensusPct)
	}

	if currentAgree >= agreement {
		return consensus.ConsensusStateYes
	}

	if currentFinished >= participantsNeeded(prevProposers, parms.MinConsensusPct) {
		return consensus.ConsensusStateMovedOn
	}

	if currentAgreeTime >= parms.LedgerMaxConsensus {
		return consensus.ConsensusStateExpired
	}

	return consensus.ConsensusStateNo
}
