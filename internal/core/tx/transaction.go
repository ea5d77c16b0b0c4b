package tx

import "errors"

// Common errors
var (
	ErrMissingRequiredField   = errors.New("missing required field")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidAccount         = errors.New("invalid account")
	ErrInvalidFlags           = errors.New("temINVALID_FLAG: invalid flags")
	ErrInvalidSequence        = errors.New("invalid sequence")
)

// Transaction is the interface TxQ treats every submitted transaction
// through. Applying one is left to the collaborator that consumes it (the
// ApplyTransaction method of txq.ApplyContext and txq.AcceptContext); this
// package only carries the fields needed to classify and order candidates.
type Transaction interface {
	// TxType returns the transaction type.
	TxType() Type

	// GetCommon returns the common transaction fields.
	GetCommon() *Common
}

// Common contains the fields shared by every transaction type that TxQ
// needs to reason about: who submitted it, what it costs, and how it
// orders against other transactions from the same account.
type Common struct {
	Account         string
	TransactionType string

	// Fee in drops, as a decimal string (matches the wire encoding).
	Fee string

	// Sequence number, nil when the transaction instead spends a ticket.
	Sequence *uint32

	// TicketSequence is set when this transaction spends a ticket rather
	// than consuming the account's next sequence number.
	TicketSequence *uint32

	AccountTxnID       string
	LastLedgerSequence *uint32
	SourceTag          *uint32
}

// GetSequence returns the sequence number, or 0 if this transaction spends
// a ticket instead.
func (c *Common) GetSequence() uint32 {
	if c.Sequence == nil {
		return 0
	}
	return *c.Sequence
}

// SeqProxy returns the effective sequence value for this transaction: the
// ticket sequence when one is set, otherwise the account sequence.
// Reference: rippled STTx::getSeqProxy()
func (c *Common) SeqProxy() uint32 {
	if c.TicketSequence != nil {
		return *c.TicketSequence
	}
	if c.Sequence != nil {
		return *c.Sequence
	}
	return 0
}

// BaseTx provides the common-field plumbing shared by every transaction
// type that embeds it.
type BaseTx struct {
	Common
	txType Type
}

// TxType returns the transaction type.
func (b *BaseTx) TxType() Type {
	return b.txType
}

// GetCommon returns the common transaction fields.
func (b *BaseTx) GetCommon() *Common {
	return &b.Common
}

// NewBaseTx creates a new base transaction.
func NewBaseTx(txType Type, account string) *BaseTx {
	return &BaseTx{
		Common: Common{
			Account:         account,
			TransactionType: txType.String(),
		},
		txType: txType,
	}
}
