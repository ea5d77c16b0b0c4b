package tx

import "fmt"

// Type represents a transaction type code, matching rippled's ttXXX constants.
type Type uint16

const RippleEpoch int64 = 946684800

// Transaction type codes. This keeps only the types TxQ admission logic
// needs to reason about directly (ordinary account transactions, the two
// sequence-blocking types, and the pseudo-transaction types used when
// building ledgers) rather than the full per-feature catalog; any other
// type is carried through the queue as an opaque Transaction without a
// named constant.
const (
	TypeInvalid Type = 0xFFFF

	TypePayment              Type = 0  // ttPAYMENT
	TypeEscrowCreate         Type = 1  // ttESCROW_CREATE
	TypeEscrowFinish         Type = 2  // ttESCROW_FINISH
	TypeAccountSet           Type = 3  // ttACCOUNT_SET
	TypeEscrowCancel         Type = 4  // ttESCROW_CANCEL
	TypeRegularKeySet        Type = 5  // ttREGULAR_KEY_SET
	TypeOfferCreate          Type = 7  // ttOFFER_CREATE
	TypeOfferCancel          Type = 8  // ttOFFER_CANCEL
	TypeTicketCreate         Type = 10 // ttTICKET_CREATE
	TypeSignerListSet        Type = 12 // ttSIGNER_LIST_SET
	TypePaymentChannelCreate Type = 13 // ttPAYCHAN_CREATE
	TypeCheckCreate          Type = 16 // ttCHECK_CREATE
	TypeCheckCash            Type = 17 // ttCHECK_CASH
	TypeDepositPreauth       Type = 19 // ttDEPOSIT_PREAUTH
	TypeTrustSet             Type = 20 // ttTRUST_SET
	TypeAccountDelete        Type = 21 // ttACCOUNT_DELETE

	// System-generated pseudo-transactions
	TypeAmendment Type = 100 // ttAMENDMENT
	TypeFee       Type = 101 // ttFEE
	TypeUNLModify Type = 102 // ttUNL_MODIFY
)

// String returns the string name of the transaction type.
func (t Type) String() string {
	switch t {
	case TypePayment:
		return "Payment"
	case TypeEscrowCreate:
		return "EscrowCreate"
	case TypeEscrowFinish:
		return "EscrowFinish"
	case TypeAccountSet:
		return "AccountSet"
	case TypeEscrowCancel:
		return "EscrowCancel"
	case TypeRegularKeySet:
		return "SetRegularKey"
	case TypeOfferCreate:
		return "OfferCreate"
	case TypeOfferCancel:
		return "OfferCancel"
	case TypeTicketCreate:
		return "TicketCreate"
	case TypeSignerListSet:
		return "SignerListSet"
	case TypePaymentChannelCreate:
		return "PaymentChannelCreate"
	case TypeCheckCreate:
		return "CheckCreate"
	case TypeCheckCash:
		return "CheckCash"
	case TypeDepositPreauth:
		return "DepositPreauth"
	case TypeTrustSet:
		return "TrustSet"
	case TypeAccountDelete:
		return "AccountDelete"
	case TypeAmendment:
		return "EnableAmendment"
	case TypeFee:
		return "SetFee"
	case TypeUNLModify:
		return "UNLModify"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// IsPseudoTransaction returns true if this is a system-generated transaction.
func (t Type) IsPseudoTransaction() bool {
	return t == TypeAmendment || t == TypeFee || t == TypeUNLModify
}

// IsBlocker returns true for transaction types that can invalidate every
// later transaction queued for the same account by changing the keys or
// signer list used to authorize them.
func (t Type) IsBlocker() bool {
	return t == TypeRegularKeySet || t == TypeSignerListSet
}
