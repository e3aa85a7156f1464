package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/tempvoice/internal/domain"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotManaged):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidSettings), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOwnerPresent),
		errors.Is(err, domain.ErrNotPresent),
		errors.Is(err, domain.ErrTransferDisabled):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCooldown):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrCapacity),
		errors.Is(err, domain.ErrGuildLimit),
		errors.Is(err, domain.ErrUserLimit),
		errors.Is(err, domain.ErrMissingCreatorRole),
		errors.Is(err, domain.ErrDisabled):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTransientPlatform):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(ctx *gin.Context, err error) {
	ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
}
