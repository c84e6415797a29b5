package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/domain/shared/apperr"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindPolicyViolation:
		return http.StatusUnprocessableEntity
	case apperr.KindUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the {kind, message} body for err. Internal failures
// are logged and their message is not exposed.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := statusForKind(kind)
	message := err.Error()
	if kind == apperr.KindInternal {
		message = "internal error"
		if logger != nil {
			logger.Error("request failed", "path", c.FullPath(), "error", err, "request_id", c.GetString("request_id"))
		}
	} else if logger != nil {
		logger.Debug("request rejected", "path", c.FullPath(), "kind", kind, "error", err)
	}
	c.JSON(status, errorBody{Kind: string(kind), Message: message})
}

// bindJSON decodes the body or answers 400.
func bindJSON(c *gin.Context, logger *slog.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, logger, apperr.Wrap(apperr.KindValidation, "http: malformed request body: "+err.Error(), err))
		return false
	}
	return true
}
