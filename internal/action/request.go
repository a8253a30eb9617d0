package action

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Kind discriminates the remote action a request performs.
type Kind string

const (
	KindCall       Kind = "call"
	KindSendLink   Kind = "send-link"
	KindResendLink Kind = "resend-link"
	KindCancelLink Kind = "cancel-link"
)

const (
	MsgInvalidPhone  = "Provide a valid 10 digit number"
	MsgInvalidAmount = "Provide a valid amount"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// ValidationError is returned before any network call when input is
// rejected. Message is shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("action: invalid %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CallParams are the click-to-call parameters sent to the trigger endpoint.
type CallParams struct {
	SubmissionType string
	PostID         string
	From           string
	To             string
	CallerID       string
}

// LinkParams carry the payment-link fields. Phone and Amount are only set
// for KindSendLink; LinkID only for resend and cancel.
type LinkParams struct {
	PropertyID  string
	PhoneNumber string
	Amount      float64
	LinkID      string
}

// Request is everything needed to perform one remote action. It is built
// by the New*Request constructors and not modified afterwards.
type Request struct {
	kind     Kind
	targetID string
	call     CallParams
	link     LinkParams
}

func (r Request) Kind() Kind       { return r.kind }
func (r Request) TargetID() string { return r.targetID }
func (r Request) Call() CallParams { return r.call }
func (r Request) Link() LinkParams { return r.link }

func NewCallRequest(p CallParams) (Request, error) {
	p.PostID = strings.TrimSpace(p.PostID)
	if p.PostID == "" {
		return Request{}, &ValidationError{Field: "post_id", Message: "post id is required"}
	}
	return Request{kind: KindCall, targetID: p.PostID, call: p}, nil
}

// NewSendLinkRequest validates the phone number and amount read from the
// form at click time.
func NewSendLinkRequest(propertyID, phoneNumber string, amount float64) (Request, error) {
	if !phonePattern.MatchString(phoneNumber) {
		return Request{}, &ValidationError{Field: "phone_number", Message: MsgInvalidPhone}
	}
	if math.IsNaN(amount) || amount < 1 {
		return Request{}, &ValidationError{Field: "amount", Message: MsgInvalidAmount}
	}
	return Request{
		kind:     KindSendLink,
		targetID: propertyID,
		link:     LinkParams{PropertyID: propertyID, PhoneNumber: phoneNumber, Amount: amount},
	}, nil
}

func NewResendLinkRequest(propertyID, linkID string) (Request, error) {
	return newLinkRequest(KindResendLink, propertyID, linkID)
}

func NewCancelLinkRequest(propertyID, linkID string) (Request, error) {
	return newLinkRequest(KindCancelLink, propertyID, linkID)
}

func newLinkRequest(kind Kind, propertyID, linkID string) (Request, error) {
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return Request{}, &ValidationError{Field: "link_id", Message: "payment link id is required"}
	}
	return Request{
		kind:     kind,
		targetID: propertyID,
		link:     LinkParams{PropertyID: propertyID, LinkID: linkID},
	}, nil
}
