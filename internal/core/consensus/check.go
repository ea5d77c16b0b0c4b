package consensus

import "time"

// ParticipantsNeeded computes how many participants, out of the given
// total, are required to clear the given percentage threshold. The result
// is rounded to the nearest participant and is never zero when percent is
// nonzero, since a threshold of "at least one" still has to mean something
// for small validator sets.
func ParticipantsNeeded(participants, percent int) int {
	result := ((participants * percent) + 50) / 100
	if result == 0 {
		return 1
	}
	return result
}

// CheckConsensus evaluates whether the establish phase has reached
// consensus on the current round.
//
// prevProposers describes the prior round, used as a baseline for
// participation; previousAgreeTime is accepted but not consulted.
// currentAgreeTime is this round's duration; currentProposers/currentAgree
// describe how many trusted peers proposed this round and how many of
// those agree with our current position; currentFinished is how many
// trusted peers have already moved on to a later ledger without waiting
// for us.
func CheckConsensus(
	prevProposers, currentProposers, currentAgree, currentFinished int,
	previousAgreeTime, currentAgreeTime time.Duration,
	minConsensusPct int,
	minConsensusTime, maxConsensusTime time.Duration,
) ConsensusState {
	if currentAgreeTime <= minConsensusTime {
		return ConsensusStateNo
	}

	if currentProposers < (prevProposers*3)/4 {
		// Participation dropped too far below the last round's count to
		// trust the sample; keep waiting rather than act on a skewed read.
		return ConsensusStateNo
	}

	if currentAgreeTime > maxConsensusTime {
		return ConsensusStateExpired
	}

	if currentFinished > ParticipantsNeeded(prevProposers, minConsensusPct) {
		return ConsensusStateMovedOn
	}

	if currentAgree >= ParticipantsNeeded(currentProposers, minConsensusPct) {
		return ConsensusStateYes
	}

	return ConsensusStateNo
}
