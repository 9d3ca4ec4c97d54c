package domain

type CheckoutStatus string

const (
	CheckoutStatusIdle       CheckoutStatus = "idle"
	CheckoutStatusRequesting CheckoutStatus = "requesting"
	CheckoutStatusReady      CheckoutStatus = "ready"
	CheckoutStatusConfirming CheckoutStatus = "confirming"
	CheckoutStatusSucceeded  CheckoutStatus = "succeeded"
	CheckoutStatusFailed     CheckoutStatus = "failed"
)

var transitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusIdle: {CheckoutStatusRequesting},
	// a changed cart supersedes the in-flight attempt or the issued secret
	CheckoutStatusRequesting: {CheckoutStatusReady, CheckoutStatusFailed, CheckoutStatusRequesting},
	CheckoutStatusReady:      {CheckoutStatusConfirming, CheckoutStatusRequesting},
	CheckoutStatusConfirming: {CheckoutStatusSucceeded, CheckoutStatusFailed},
	CheckoutStatusFailed:     {CheckoutStatusConfirming, CheckoutStatusRequesting},
}

func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusSucceeded
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}
