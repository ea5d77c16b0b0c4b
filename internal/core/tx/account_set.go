package tx

// AccountSet is a representative ordinary (non-blocking) transaction: it
// changes account settings but never invalidates transactions already
// queued behind it for the same account.
type AccountSet struct {
	BaseTx

	SetFlag   *uint32
	ClearFlag *uint32
}

// NewAccountSet creates a new AccountSet transaction.
func NewAccountSet(account string) *AccountSet {
	return &AccountSet{
		BaseTx: *NewBaseTx(TypeAccountSet, account),
	}
}

// SetRegularKey is one of the two blocker transaction types: once applied,
// it can change which key authorizes every later transaction queued for
// the account, so TxQ refuses to queue anything behind it (or it behind
// anything else already queued).
type SetRegularKey struct {
	BaseTx

	RegularKey string
}

// NewSetRegularKey creates a new SetRegularKey transaction.
func NewSetRegularKey(account, regularKey string) *SetRegularKey {
	return &SetRegularKey{
		BaseTx:     *NewBaseTx(TypeRegularKeySet, account),
		RegularKey: regularKey,
	}
}

// Payment is a representative transaction with a potential XRP spend beyond
// its fee, used to size TxQ's consequence accounting.
type Payment struct {
	BaseTx

	DestinationDrops uint64
}

// NewPayment creates a new Payment transaction paying the given number of
// drops of XRP.
func NewPayment(account string, drops uint64) *Payment {
	return &Payment{
		BaseTx:           *NewBaseTx(TypePayment, account),
		DestinationDrops: drops,
	}
}
