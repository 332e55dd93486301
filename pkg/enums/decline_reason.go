package enums

// DeclineReason classifies user-recoverable capture failures.
type DeclineReason string

const (
	DeclineReasonInsufficientFunds    DeclineReason = "insufficient_funds"
	DeclineReasonInstrumentExpired    DeclineReason = "instrument_expired"
	DeclineReasonSecurityCodeMismatch DeclineReason = "security_code_mismatch"
	DeclineReasonAccountRestricted    DeclineReason = "account_restricted"
	DeclineReasonDuplicate            DeclineReason = "duplicate_transaction"
	DeclineReasonGeneric              DeclineReason = "declined"
)

var declineMessages = map[DeclineReason]string{
	DeclineReasonInsufficientFunds:    "Your payment method has insufficient funds.",
	DeclineReasonInstrumentExpired:    "Your payment method has expired.",
	DeclineReasonSecurityCodeMismatch: "The security code did not match. Please check and try again.",
	DeclineReasonAccountRestricted:    "Your payment account is currently restricted.",
	DeclineReasonDuplicate:            "This payment appears to be a duplicate of a recent transaction.",
	DeclineReasonGeneric:              "Your payment was declined. Please try a different payment method.",
}

// String implements fmt.Stringer.
func (d DeclineReason) String() string {
	return string(d)
}

// UserMessage returns the buyer-facing explanation for the decline.
func (d DeclineReason) UserMessage() string {
	if msg, ok := declineMessages[d]; ok {
		return msg
	}
	return declineMessages[DeclineReasonGeneric]
}
