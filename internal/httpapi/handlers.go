package httpapi

import (
	"errors"
	"net/http"
	"time"

	"admin-actions/internal/audit"
	"admin-actions/internal/auth"
	"admin-actions/internal/calls"
	"admin-actions/internal/control"
	"admin-actions/internal/panel"
	"admin-actions/internal/rbac"
	"admin-actions/internal/reporting"
	"admin-actions/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse input, call the panels, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	Controls *control.Registry
	Calls    *panel.CallPanel
	Payments *panel.PaymentPanel
	Fields   *panel.Fields
	Reports  *reporting.Service
}

// StatusFor maps a notice kind to the HTTP status of the response.
func StatusFor(k panel.NoticeKind) int {
	switch k {
	case panel.NoticeNone, panel.NoticeInfo:
		return http.StatusOK
	case panel.NoticeValidation:
		return http.StatusBadRequest
	case panel.NoticeBusy, panel.NoticeConflict:
		return http.StatusConflict
	case panel.NoticeRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ClientIP stores the caller address for the audit log.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithClientIP(c.Request.Context(), c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// --- Auth ---

type tokenRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// DevToken issues an access token without checking credentials. Only
// registered outside production; the admin site mints real tokens with
// the shared secret.
func (h Handlers) DevToken(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || !rbac.Known(req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id and a known role required"})
		return
	}
	tok, err := h.Auth.IssueAccess(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": tok})
}

// --- Controls ---

func (h Handlers) GetControl(c *gin.Context) {
	ctl, ok := h.Controls.Lookup(c.Param("control_id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "control not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"control": ctl.View()})
}

// --- Calls ---

type callRequest struct {
	SubmissionType string `json:"submission_type"`
	From           string `json:"from"`
	To             string `json:"to"`
	CallerID       string `json:"caller_id"`
}

func (r callRequest) binding(postID string) calls.Binding {
	return calls.Binding{
		SubmissionType: r.SubmissionType,
		PostID:         postID,
		From:           r.From,
		To:             r.To,
		CallerID:       r.CallerID,
	}
}

// TriggerCall handles a click on the call control of a post.
func (h Handlers) TriggerCall(c *gin.Context) {
	var req callRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res := h.Calls.Trigger(c.Request.Context(), req.binding(c.Param("post_id")))
	c.JSON(StatusFor(res.Kind), res)
}

// RefreshCall polls the call status of a post. The body carries the call
// parameters so the call control can be rebuilt.
func (h Handlers) RefreshCall(c *gin.Context) {
	var req callRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res := h.Calls.Refresh(c.Request.Context(), req.binding(c.Param("post_id")))
	c.JSON(StatusFor(res.Kind), res)
}

func (h Handlers) GetCallFields(c *gin.Context) {
	postID := c.Param("post_id")
	fields, ok := h.Fields.Get(postID)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no status polled yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"post_id": postID, "fields": fields})
}

// --- Payment links ---

type sendLinkRequest struct {
	PhoneNumber string  `json:"phone_number"`
	Amount      float64 `json:"amount"`
}

type linkRequest struct {
	PropertyID string `json:"property_id"`
}

func (h Handlers) SendPaymentLink(c *gin.Context) {
	var req sendLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res := h.Payments.Send(c.Request.Context(), c.Param("property_id"), req.PhoneNumber, req.Amount)
	c.JSON(StatusFor(res.Kind), res)
}

func (h Handlers) ResendPaymentLink(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res := h.Payments.Resend(c.Request.Context(), req.PropertyID, c.Param("link_id"))
	c.JSON(StatusFor(res.Kind), res)
}

func (h Handlers) CancelPaymentLink(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res := h.Payments.Cancel(c.Request.Context(), req.PropertyID, c.Param("link_id"))
	c.JSON(StatusFor(res.Kind), res)
}

// --- Reports ---

// reportRange reads RFC 3339 from/to query params. Missing bounds default to
// the last 24 hours ending now.
func reportRange(c *gin.Context) (reporting.TimeRange, bool) {
	now := time.Now().UTC()
	r := reporting.TimeRange{From: now.Add(-24 * time.Hour), To: now}
	for name, dst := range map[string]*time.Time{"from": &r.From, "to": &r.To} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return r, false
		}
		*dst = t
	}
	return r, true
}

func (h Handlers) reportError(c *gin.Context, err error) {
	if errors.Is(err, reporting.ErrInvalidRequest) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
		return
	}
	logger.FromGin(c).Error("report failed", "err", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
}

func (h Handlers) ActionsReport(c *gin.Context) {
	r, ok := reportRange(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to must be RFC 3339"})
		return
	}
	out, err := h.Reports.ActionsSummary(c.Request.Context(), reporting.ActionsSummaryRequest{Range: r, Kind: c.Query("kind")})
	if err != nil {
		h.reportError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) CallsReport(c *gin.Context) {
	r, ok := reportRange(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to must be RFC 3339"})
		return
	}
	out, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{Range: r, PostID: c.Query("post_id")})
	if err != nil {
		h.reportError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
