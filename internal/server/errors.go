package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fablehold/fablehold/internal/authorization"
	battlepassdomain "github.com/fablehold/fablehold/internal/battlepass/domain"
	elementdomain "github.com/fablehold/fablehold/internal/element/domain"
	groupdomain "github.com/fablehold/fablehold/internal/group/domain"
	notificationdomain "github.com/fablehold/fablehold/internal/notification/domain"
	reportdomain "github.com/fablehold/fablehold/internal/report/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, reportdomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many moderation actions",
		}
	case errors.Is(err, reportdomain.ErrInvalidState):
		return http.StatusConflict, errorPayload{
			Type:    "invalid_state",
			Message: "transition not allowed from the current status",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, reportdomain.ErrInvalidDescription),
		errors.Is(err, reportdomain.ErrNoParticipants),
		errors.Is(err, reportdomain.ErrInvalidAction),
		errors.Is(err, reportdomain.ErrInvalidRejectionReason),
		errors.Is(err, reportdomain.ErrPlanTextTooLong),
		errors.Is(err, reportdomain.ErrPlanTextsNotUnique),
		errors.Is(err, elementdomain.ErrInvalidKind),
		errors.Is(err, elementdomain.ErrInvalidTitle),
		errors.Is(err, elementdomain.ErrInvalidBody),
		errors.Is(err, battlepassdomain.ErrInvalidUser),
		errors.Is(err, battlepassdomain.ErrInvalidUses),
		errors.Is(err, battlepassdomain.ErrInvalidInput),
		errors.Is(err, notificationdomain.ErrInvalidUser),
		errors.Is(err, groupdomain.ErrInvalidName):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, reportdomain.ErrForbidden),
		errors.Is(err, elementdomain.ErrForbidden),
		errors.Is(err, battlepassdomain.ErrForbidden),
		errors.Is(err, groupdomain.ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, reportdomain.ErrPlanExists),
		errors.Is(err, reportdomain.ErrElementClaimLost),
		errors.Is(err, elementdomain.ErrElementLocked):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, reportdomain.ErrNotFound),
		errors.Is(err, reportdomain.ErrPlanNotFound),
		errors.Is(err, elementdomain.ErrNotFound),
		errors.Is(err, elementdomain.ErrNoneAvailable),
		errors.Is(err, battlepassdomain.ErrNotFound),
		errors.Is(err, groupdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

// classifyErrorForLog buckets an error for the request log line.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case asValidationErrors(err) != nil, isValidationError(err):
		return "validation_error", validationErrorCode(err)
	case errors.Is(err, reportdomain.ErrRateLimited):
		return "rate_limited", "moderation_rate_limited"
	case errors.Is(err, reportdomain.ErrInvalidState):
		return "invalid_state", "invalid_state"
	case isForbiddenError(err):
		return "forbidden", "forbidden"
	case isConflictError(err):
		return "conflict", err.Error()
	case isNotFoundError(err):
		return "not_found", "not_found"
	default:
		return "internal_error", "internal_error"
	}
}
