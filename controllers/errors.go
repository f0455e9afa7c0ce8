package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"hotel-ledger/services"
	"hotel-ledger/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to HTTP statuses. Consistency errors are reported as
// a generic 500; the detail stays in the logs.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		conflictErr *services.ConflictError
		invalidErr  *services.ValidationError
		ruleErr     *services.BusinessRuleViolation
		consistency *services.ConsistencyError
	)
	switch {
	case errors.As(err, &invalidErr):
		utils.JSONErrorCode(c, http.StatusBadRequest, invalidErr.Code, invalidErr.Message, gin.H{"field": invalidErr.Field})
	case errors.Is(err, services.ErrReservationNotFound),
		errors.Is(err, services.ErrPaymentNotFound),
		errors.Is(err, services.ErrRoomNotFound),
		errors.Is(err, services.ErrCustomerNotFound):
		code := notFoundCode(err)
		utils.JSONErrorCode(c, http.StatusNotFound, code, strings.ReplaceAll(code, "_", " "), nil)
	case errors.As(err, &conflictErr):
		extra := gin.H{}
		if conflictErr.RoomID != 0 {
			extra["room_id"] = conflictErr.RoomID
		}
		utils.JSONErrorCode(c, http.StatusConflict, conflictErr.Code, conflictErr.Message, extra)
	case errors.As(err, &ruleErr):
		utils.JSONErrorCode(c, http.StatusUnprocessableEntity, ruleErr.Code, ruleErr.Message, nil)
	case errors.As(err, &consistency):
		utils.JSONErrorCode(c, http.StatusInternalServerError, "ledger_inconsistent", "the ledger could not be settled; nothing was saved", nil)
	default:
		utils.JSONErrorCode(c, http.StatusInternalServerError, "internal_error", "internal server error", nil)
	}
}

func notFoundCode(err error) string {
	for _, sentinel := range []error{
		services.ErrReservationNotFound,
		services.ErrPaymentNotFound,
		services.ErrRoomNotFound,
		services.ErrCustomerNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "not_found"
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		utils.JSONErrorCode(c, http.StatusBadRequest, "invalid_id", "invalid "+name, gin.H{"field": name})
		return 0, false
	}
	return uint(id), true
}

// actorID reads the acting front-desk user from X-Actor-ID.
func actorID(c *gin.Context) (uint, bool) {
	raw := strings.TrimSpace(c.GetHeader("X-Actor-ID"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		utils.JSONErrorCode(c, http.StatusBadRequest, "missing_actor", "X-Actor-ID header is required", nil)
		return 0, false
	}
	return uint(id), true
}
