package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"launchpad/internal/service"
)

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func boolPtr(v bool) *bool { return &v }

func uint64Param(c *gin.Context, key string) uint64 {
	val := strings.TrimSpace(c.Param(key))
	if val == "" {
		return 0
	}
	var out uint64
	for i := 0; i < len(val); i++ {
		ch := val[i]
		if ch < '0' || ch > '9' {
			return 0
		}
		out = out*10 + uint64(ch-'0')
	}
	return out
}

func paginationMeta(limit, offset int, total int64) map[string]any {
	if limit <= 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	hasNext := int64(offset+limit) < total
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": hasNext,
	}
}

// serviceError maps intake/clearing sentinel errors onto HTTP statuses.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrReplayRejected):
		Error(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrLaunchClosed):
		Error(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrLaunchStillOpen):
		Error(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrCommitmentMismatch):
		Error(c, http.StatusUnprocessableEntity, err.Error(), nil)
	default:
		Error(c, http.StatusInternalServerError, err.Error(), nil)
	}
}
