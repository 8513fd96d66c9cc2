package types

// RejectReason explains why a transaction was refused by the pending pool.
type RejectReason int

const (
	RejectMissingParty        RejectReason = 10
	RejectInvalidAmount       RejectReason = 11
	RejectInsufficientBalance RejectReason = 20
	RejectBadSignature        RejectReason = 30
	RejectHashMismatch        RejectReason = 31
	RejectDuplicate           RejectReason = 32
)

var codeToReasonMap = map[int]string{
	10: "missing sender or recipient",
	11: "amount must be a non-negative number",
	20: "insufficient balance",
	30: "invalid signature",
	31: "transaction hash does not match its content",
	32: "transaction already submitted",
}

func (r RejectReason) String() string {
	return codeToReasonMap[int(r)]
}

func (r RejectReason) Error() string {
	return r.String()
}
