package panel

// Labels and notices rendered by the panels.
const (
	LabelCall       = "Call the client"
	LabelCalling    = "Calling..."
	LabelRetryCall  = "Retry calling"
	LabelRefresh    = "Refresh"
	LabelRefreshing = "Refreshing..."

	LabelSendLink   = "Send Payment Link"
	LabelSending    = "sending.."
	LabelResendLink = "Resend"
	LabelResending  = "resending.."
	LabelCancelLink = "Cancel"
	LabelCancelling = "cancelling.."

	BackgroundBusy    = "red"
	BackgroundSuccess = "green"

	MsgCallConflict  = "Another call is in progress. Please complete it before calling."
	MsgRefreshFailed = "Error in Refresh"
	MsgUnexpected    = "Unexpected error, contact Backend team."
)

// Control id prefixes. The suffix is the post, property or link id.
const (
	prefixCall       = "exotel_call_button:"
	prefixRefresh    = "refresh_exotel_status_button:"
	prefixSendLink   = "send_payment_link:"
	prefixResendLink = "resend_payment_link:"
	prefixCancelLink = "cancel_payment_link:"
)

func CallControlID(postID string) string { return prefixCall + postID }
func RefreshControlID(postID string) string { return prefixRefresh + postID }
func SendLinkControlID(propertyID string) string { return prefixSendLink + propertyID }
func ResendLinkControlID(linkID string) string { return prefixResendLink + linkID }
func CancelLinkControlID(linkID string) string { return prefixCancelLink + linkID }

// ContactBackend annotates a server failure text for the user. The text is
// kept as the server sent it.
func ContactBackend(msg string) string {
	return msg + " contact Backend team."
}
