package httpgin

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/repository"
	"github.com/kirinyoku/pizza-go/internal/service/admin"
	"github.com/kirinyoku/pizza-go/internal/service/allocation"
	"github.com/kirinyoku/pizza-go/internal/service/capacity"
	"github.com/kirinyoku/pizza-go/internal/service/catalog"
	"github.com/kirinyoku/pizza-go/internal/service/orders"
	"github.com/kirinyoku/pizza-go/internal/service/query"
	"github.com/kirinyoku/pizza-go/internal/uow"
)

// statusBySentinel maps business errors to their HTTP status. The sentinel's
// own text is the response message, so wrapped operation prefixes never
// reach the client.
var statusBySentinel = []struct {
	err    error
	status int
}{
	// not found
	{orders.ErrOrderNotFound, http.StatusNotFound},
	{allocation.ErrOrderNotFound, http.StatusNotFound},
	{allocation.ErrTicketNotFound, http.StatusNotFound},
	{allocation.ErrItemNotFound, http.StatusNotFound},
	{catalog.ErrItemNotFound, http.StatusNotFound},
	{admin.ErrItemNotFound, http.StatusNotFound},
	{query.ErrOrderNotFound, http.StatusNotFound},

	// conflicts
	{allocation.ErrContended, http.StatusConflict},
	{uow.ErrContended, http.StatusConflict},
	{repository.ErrRetryable, http.StatusConflict},
	{admin.ErrItemConflict, http.StatusConflict},

	// business rules and validation
	{orders.ErrNoItems, http.StatusBadRequest},
	{orders.ErrOrderTooLarge, http.StatusBadRequest},
	{orders.ErrInvalidItems, http.StatusBadRequest},
	{orders.ErrCannotCancel, http.StatusBadRequest},
	{orders.ErrInvalidStatus, http.StatusBadRequest},
	{orders.ErrInvalidOrder, http.StatusBadRequest},
	{capacity.ErrInvalidTimeslot, http.StatusBadRequest},
	{domain.ErrBadTimeslot, http.StatusBadRequest},
	{allocation.ErrAlreadyFinished, http.StatusBadRequest},
	{allocation.ErrNotFinished, http.StatusBadRequest},
	{allocation.ErrInvalidTransition, http.StatusBadRequest},
	{admin.ErrInvalidItem, http.StatusBadRequest},
	{query.ErrInvalidFilter, http.StatusBadRequest},

	{admin.ErrReloadFailed, http.StatusInternalServerError},
}

// respondErr converts a service error into a response. Anything it does not
// recognise is recorded on the context for the access log and answered with
// a generic 500.
func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		shortage allocation.ShortageError
		conflict allocation.ConflictError
		exceeded capacity.ExceededError
		limited  orders.RateLimitedError
	)

	switch {
	case errors.As(err, &shortage):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: shortage.Error()})
		return
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, ErrorResponse{Message: conflict.Error()})
		return
	case errors.As(err, &exceeded):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: capacity.ErrCapacityExceeded.Error() + ": " + exceeded.Error(),
		})
		return
	case errors.As(err, &limited):
		secs := int(math.Ceil(limited.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Message: orders.ErrRateLimited.Error()})
		return
	case errors.Is(err, capacity.ErrCapacityExceeded):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: capacity.ErrCapacityExceeded.Error()})
		return
	}

	for _, m := range statusBySentinel {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				_ = c.Error(err)
			}
			c.JSON(m.status, ErrorResponse{Message: m.err.Error()})
			return
		}
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Message: msg})
}
