package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"gstbill/internal/apperr"
	"gstbill/pkg/response"
)

// respondError maps domain errors to HTTP statuses: validation 400, missing
// entity 404, stock/concurrency conflicts 409, everything else an opaque 500.
// Internal detail is logged, never sent to the caller.
func respondError(c *gin.Context, err error) {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, response.ValidationFailure(http.StatusBadRequest, ve.Violations))
		return
	}

	var nf *apperr.NotFoundError
	if errors.As(err, &nf) {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, nf.Error()))
		return
	}

	var is *apperr.InsufficientStockError
	if errors.As(err, &is) {
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, is.Error()))
		return
	}

	if errors.Is(err, apperr.ErrConflict) {
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, "operation conflicted with a concurrent request, retry"))
		return
	}

	log.Printf("internal error: %v", err)
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "internal error"))
}
