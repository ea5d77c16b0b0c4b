package txq

import (
	"testing"

	"github.com/coreledger/ledgerd/internal/core/tx"
)

// fakeAcceptContext is a minimal AcceptContext for exercising Accept/
// eraseAndAdvance in isolation. ApplyTransaction always succeeds, so these
// tests focus purely on ordering, not on apply failure handling (covered by
// apply_test.go's fakeApplyContext).
type fakeAcceptContext struct {
	txInLedger   uint32
	appliedOrder []uint32
}

func (f *fakeAcceptContext) GetTxInLedger() uint32              { return f.txInLedger }
func (f *fakeAcceptContext) GetAccountSequence([20]byte) uint32 { return 0 }
func (f *fakeAcceptContext) GetParentHash() [32]byte            { return [32]byte{} }
func (f *fakeAcceptContext) ApplyTransaction(txn tx.Transaction) (tx.Result, bool) {
	common := txn.GetCommon()
	seq := uint32(0)
	if common.Sequence != nil {
		seq = *common.Sequence
	}
	f.appliedOrder = append(f.appliedOrder, seq)
	return tx.TesSUCCESS, true
}

func TestAccept_JumpsToOutbiddingAccountSuccessorAcrossAccounts(t *testing.T) {
	q := New(DefaultConfig())
	ctx := &fakeAcceptContext{}
	acctA := testAccount(1)
	acctB := testAccount(2)

	a5 := NewCandidate(newAccountSetTx(acctA, 5, 1), [32]byte{5}, acctA, 300, NewSeqProxySequence(5), 0, tx.TesSUCCESS, TxConsequences{FollowingSeq: NewSeqProxySequence(6)})
	a6 := NewCandidate(newAccountSetTx(acctA, 6, 1), [32]byte{6}, acctA, 290, NewSeqProxySequence(6), 0, tx.TesSUCCESS, TxConsequences{FollowingSeq: NewSeqProxySequence(7)})
	b1 := NewCandidate(newAccountSetTx(acctB, 1, 1), [32]byte{1}, acctB, 260, NewSeqProxySequence(1), 0, tx.TesSUCCESS, TxConsequences{FollowingSeq: NewSeqProxySequence(2)})

	q.addRawCandidate(a5)
	q.addRawCandidate(a6)
	q.addRawCandidate(b1)

	q.Accept(ctx)

	// a6 outbids b1, so A's run should drain before B's single entry.
	want := []uint32{5, 6, 1}
	if len(ctx.appliedOrder) != len(want) {
		t.Fatalf("expected %d applications, got %v", len(want), ctx.appliedOrder)
	}
	for i := range want {
		if ctx.appliedOrder[i] != want[i] {
			t.Fatalf("expected apply order %v, got %v", want, ctx.appliedOrder)
		}
	}
}

func (q *TxQ) addRawCandidate(c *Candidate) {
	aq, exists := q.byAccount[c.Account]
	if !exists {
		aq = NewAccountQueue(c.Account)
		q.byAccount[c.Account] = aq
	}
	aq.Add(c)
	q.insertByFee(c)
}

func TestEraseAndAdvance_PrefersAccountSuccessorWhenItOutbidsFeeNext(t *testing.T) {
	q := New(DefaultConfig())
	acctA := testAccount(1)
	acctB := testAccount(2)

	// Account A has seq 5 (fee 300) then seq 6 (fee 400): a6 sorts ahead of
	// a5 by fee, so the walk passes it before a5 applies. Erasing a5 from
	// position 1, the successor (400) outbids what would otherwise be next
	// by fee (account B's 200), so iteration jumps back to a6.
	a5 := NewCandidate(newAccountSetTx(acctA, 5, 1), [32]byte{5}, acctA, 300, NewSeqProxySequence(5), 0, tx.TesSUCCESS, TxConsequences{FollowingSeq: NewSeqProxySequence(6)})
	a6 := NewCandidate(newAccountSetTx(acctA, 6, 1), [32]byte{6}, acctA, 400, NewSeqProxySequence(6), 0, tx.TesSUCCESS, TxConsequences{FollowingSeq: NewSeqProxySequence(7)})
	b1 := NewCandidate(newAccountSetTx(acctB, 1, 1), [32]byte{1}, acctB, 200, NewSeqProxySequence(1), 0, tx.TesSUCCESS, TxConsequences{FollowingSeq: NewSeqProxySequence(2)})

	q.addRawCandidate(a5)
	q.addRawCandidate(a6)
	q.addRawCandidate(b1)

	// byFee should now read a6(400), a5(300), b1(200).
	if len(q.byFee) != 3 || q.byFee[0] != a6 || q.byFee[1] != a5 || q.byFee[2] != b1 {
		t.Fatalf("unexpected byFee order before erase: %+v", q.byFee)
	}

	idx := 1
	q.eraseAndAdvance(&idx, a5)

	if idx != 0 {
		t.Fatalf("expected idx to jump back to a6 (position 0 after erase), got %d", idx)
	}
	if len(q.byFee) != 2 || q.byFee[0] != a6 {
		t.Fatalf("expected a6 to remain next in byFee, got %+v", q.byFee)
	}
}

func TestEraseAndAdvance_FallsBackToFeeOrderWhenSuccessorDoesNotOutbid(t *testing.T) {
	q := New(DefaultConfig())
	acctA := testAccount(1)
	acctB := testAccount(2)

	// Account A's successor (150) does NOT outbid account B's entry (200),
	// so iteration should continue in plain fee order (B next), not jump
	// to A's successor.
	a5 := NewCandidate(newAccountSetTx(acctA, 5, 1), [32]byte{5}, acctA, 300, NewSeqProxySequence(5), 0, tx.TesSUCCESS, TxConsequences{FollowingSeq: NewSeqProxySequence(6)})
	a6 := NewCandidate(newAccountSetTx(acctA, 6, 1), [32]byte{6}, acctA, 150, NewSeqProxySequence(6), 0, tx.TesSUCCESS, TxConsequences{FollowingSeq: NewSeqProxySequence(7)})
	b1 := NewCandidate(newAccountSetTx(acctB, 1, 1), [32]byte{1}, acctB, 200, NewSeqProxySequence(1), 0, tx.TesSUCCESS, TxConsequences{FollowingSeq: NewSeqProxySequence(2)})

	q.addRawCandidate(a5)
	q.addRawCandidate(b1)
	q.addRawCandidate(a6)

	if len(q.byFee) != 3 || q.byFee[0] != a5 || q.byFee[1] != b1 || q.byFee[2] != a6 {
		t.Fatalf("unexpected byFee order before erase: %+v", q.byFee)
	}

	idx := 0
	q.eraseAndAdvance(&idx, a5)

	if idx != 0 {
		t.Fatalf("expected idx to stay at position 0 (now b1), got %d", idx)
	}
	if len(q.byFee) != 2 || q.byFee[0] != b1 {
		t.Fatalf("expected b1 to be next in byFee, got %+v", q.byFee)
	}
}

func TestEraseAndAdvance_NoSuccessorFallsThroughToFeeOrder(t *testing.T) {
	q := New(DefaultConfig())
	acctA := testAccount(1)
	acctB := testAccount(2)

	a5 := NewCandidate(newAccountSetTx(acctA, 5, 1), [32]byte{5}, acctA, 300, NewSeqProxySequence(5), 0, tx.TesSUCCESS, TxConsequences{FollowingSeq: NewSeqProxySequence(6)})
	b1 := NewCandidate(newAccountSetTx(acctB, 1, 1), [32]byte{1}, acctB, 200, NewSeqProxySequence(1), 0, tx.TesSUCCESS, TxConsequences{FollowingSeq: NewSeqProxySequence(2)})

	q.addRawCandidate(a5)
	q.addRawCandidate(b1)

	idx := 0
	q.eraseAndAdvance(&idx, a5)

	if idx != 0 || len(q.byFee) != 1 || q.byFee[0] != b1 {
		t.Fatalf("expected b1 alone at idx 0, got idx=%d byFee=%+v", idx, q.byFee)
	}
}
