package app

import (
	"context"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/buscacursos-bot-go/internal/config"
)

// linePath is the route LINE posts webhook events to.
const linePath = "/callback"

// newRouter builds the HTTP routes: probes, metrics and the webhooks of the
// configured transports.
func (a *Application) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/", a.redirectToRepository)
	router.HEAD("/", a.redirectToRepository)
	router.GET("/healthz", a.livenessCheck)
	router.HEAD("/healthz", a.livenessCheck)
	router.GET("/ready", a.readinessCheck)
	router.HEAD("/ready", a.readinessCheck)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	if a.telegram != nil {
		router.POST(a.telegram.WebhookPath(), a.telegram.HandleWebhook)
	}
	if a.line != nil {
		router.POST(linePath, a.line.Handle)
	}
	return router
}

func (a *Application) redirectToRepository(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, a.cfg.About.Repository)
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) transports() map[string]bool {
	return map[string]bool{
		"telegram": a.telegram != nil,
		"line":     a.line != nil,
	}
}

// readinessCheck reports 503 while the session store is unreachable.
func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheck)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		a.logger.WithError(err).WarnContext(ctx, "Readiness check failed: session store unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "session store unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ready",
		"session_store": a.cfg.SessionBackend,
		"transports":    a.transports(),
		"version":       a.cfg.About.Version,
	})
}
