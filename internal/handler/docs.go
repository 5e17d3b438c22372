package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# Launchpad Service

Uniform-price auctions for token launches: bid intake, clearing, and
settlement tracking through the external executor.

## Auth

All /api/* routes require a Bearer token. Health endpoints are public.

## Notable Routes

- GET /healthz
- GET /readyz
- GET /swagger/index.html
- POST /api/v1/launches
- GET /api/v1/launches
- POST /api/v1/launches/{id}/clear
- POST /api/v1/launches/{id}/bids
- GET /api/v1/launches/{id}/bids
- POST /api/v1/bids/{id}/reveal
- POST /api/v1/bids/{id}/cancel
- POST /api/v1/intents
- POST /api/v1/intents/preview
- GET /api/v1/intents
- GET /api/v1/launches/{id}/settlement
- GET /api/v1/settlements
- GET /api/v1/batches
`)
	})
}
