package action

// Outcome is the result of one completed remote action.
type Outcome struct {
	ok      bool
	display string
	message string
}

// Ok is a successful outcome; display is what the control or notice shows.
func Ok(display string) Outcome { return Outcome{ok: true, display: display} }

// Failed is a failed outcome carrying the user-visible message.
func Failed(message string) Outcome { return Outcome{message: message} }

func (o Outcome) OK() bool        { return o.ok }
func (o Outcome) Display() string { return o.display }
func (o Outcome) Message() string { return o.message }

// Confirmation is the fixed notice shown after a successful payment-link
// action. It is empty for other kinds.
func Confirmation(k Kind) string {
	switch k {
	case KindSendLink:
		return "Payment link sent."
	case KindResendLink:
		return "Payment link resent."
	case KindCancelLink:
		return "Payment link cancelled."
	default:
		return ""
	}
}
