package app

import "github.com/gin-gonic/gin"

const metricsRealm = "metrics"

// metricsAuthMiddleware guards /metrics with basic auth. The endpoint stays
// open unless both credentials are configured.
func metricsAuthMiddleware(username, password string) gin.HandlerFunc {
	if username == "" || password == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return gin.BasicAuthForRealm(gin.Accounts{username: password}, metricsRealm)
}
