package validations

import "github.com/coreledger/ledgerd/internal/core/consensus"

// LedgerAncestry lets the preferred-tip walk ask "what ancestor of this
// ledger sits at the given sequence", without the validations package
// needing to know how ledger history is stored.
type LedgerAncestry interface {
	// AncestorAt returns the ancestor of id at the given sequence number,
	// or ok=false if id's history does not reach back that far (or is
	// unknown to the caller).
	AncestorAt(id consensus.LedgerID, seq uint32) (ancestor consensus.LedgerID, ok bool)
}

// PreferredLedger pairs a ledger identity with the trusted support count
// backing it at a given height during the preferred-tip walk.
type PreferredLedger struct {
	ID    consensus.LedgerID
	Seq   uint32
	Count int
}

// GetPreferred walks forward from curr (the node's own last-closed ledger)
// height by height, at each step tallying current trusted validations that
// support a successor of the current candidate, and advancing to whichever
// successor has the most support. Ties are broken by the greater LedgerID
// (lexicographic on the byte array), matching the source's tie-break rule.
//
// The walk stops at the first height with no supported successor, and
// returns that last-supported candidate. If curr itself has no support at
// all among current trusted validations, curr is returned unchanged.
func (s *Store) GetPreferred(curr consensus.LedgerID, currSeq uint32, ancestry LedgerAncestry) PreferredLedger {
	s.mu.RLock()
	trusted := make([]*consensus.Validation, 0, len(s.byNode))
	for _, ns := range s.byNode {
		if ns.trusted && ns.current != nil {
			trusted = append(trusted, ns.current)
		}
	}
	s.mu.RUnlock()

	best := PreferredLedger{ID: curr, Seq: currSeq, Count: 0}

	for {
		nextSeq := best.Seq + 1
		counts := make(map[consensus.LedgerID]int)

		for _, v := range trusted {
			if v.LedgerSeq < nextSeq {
				continue
			}
			anc, ok := s.cachedAncestorAt(ancestry, v.LedgerID, nextSeq)
			if !ok {
				continue
			}
			parentAnc, ok := s.cachedAncestorAt(ancestry, v.LedgerID, best.Seq)
			if !ok || parentAnc != best.ID {
				continue
			}
			counts[anc]++
		}

		if len(counts) == 0 {
			return best
		}

		var winner consensus.LedgerID
		winnerCount := -1
		for id, c := range counts {
			if c > winnerCount || (c == winnerCount && greaterLedgerID(id, winner)) {
				winner = id
				winnerCount = c
			}
		}

		best = PreferredLedger{ID: winner, Seq: nextSeq, Count: winnerCount}
	}
}

// GetPreferredLCL picks among a small set of last-closed-ledger candidates
// (typically the node's own candidate plus those reported by peers) using
// the same current-trusted-validation support tally as GetPreferred, for
// the case where the walk needs to pick a branch rather than a height.
func (s *Store) GetPreferredLCL(curr consensus.LedgerID, minSeq uint32, peerCounts map[consensus.LedgerID]int) consensus.LedgerID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[consensus.LedgerID]int, len(peerCounts))
	for id, c := range peerCounts {
		counts[id] = c
	}
	for _, ns := range s.byNode {
		if ns.trusted && ns.current != nil && ns.current.LedgerSeq >= minSeq {
			counts[ns.current.LedgerID]++
		}
	}

	best := curr
	bestCount := -1
	for id, c := range counts {
		if c > bestCount || (c == bestCount && greaterLedgerID(id, best)) {
			best = id
			bestCount = c
		}
	}
	return best
}

func greaterLedgerID(a, b consensus.LedgerID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}
