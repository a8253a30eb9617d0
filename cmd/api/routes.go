package main

import (
	"context"
	"net/http"

	"admin-actions/internal/httpapi"
	"admin-actions/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeDeps struct {
	Handlers httpapi.Handlers
	AuthMW   gin.HandlerFunc
	Hub      http.Handler
	Metrics  prometheus.Gatherer
	// Health is optional; nil reports ok without checking dependencies.
	Health    func(ctx context.Context) error
	DevTokens bool
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal/panel.
func registerRoutes(r *gin.Engine, d routeDeps) {
	h := d.Handlers

	// public
	r.GET("/healthz", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{})))

	if d.DevTokens {
		r.POST("/v1/auth/dev-token", h.DevToken)
	}

	v1 := r.Group("/v1")
	v1.Use(d.AuthMW, httpapi.ClientIP())

	read := rbac.RequireAnyRole(rbac.RoleViewer, rbac.RoleStaff)
	act := rbac.RequireAnyRole(rbac.RoleStaff)

	p := v1.Group("/panel")
	{
		p.GET("/controls/:control_id", read, h.GetControl)
		p.GET("/ws", read, gin.WrapH(d.Hub))

		p.POST("/calls/:post_id/trigger", act, h.TriggerCall)
		p.POST("/calls/:post_id/refresh", act, h.RefreshCall)
		p.GET("/calls/:post_id/fields", read, h.GetCallFields)

		p.POST("/properties/:property_id/payment-links", act, h.SendPaymentLink)
		p.POST("/payment-links/:link_id/resend", act, h.ResendPaymentLink)
		p.POST("/payment-links/:link_id/cancel", act, h.CancelPaymentLink)

		p.GET("/reports/actions", read, h.ActionsReport)
		p.GET("/reports/calls", read, h.CallsReport)
	}
}
