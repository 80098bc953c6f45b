package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/itemshare/item-share-backend/internal/auth"
	"github.com/itemshare/item-share-backend/internal/booking"
	"github.com/itemshare/item-share-backend/internal/pkg/request"
	"github.com/itemshare/item-share-backend/internal/pkg/response"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	b, err := h.service.Create(c.Request.Context(), booking.CreateRequest{
		ItemID:   body.ItemID,
		BookerID: auth.GetUserID(c),
		Start:    body.Start,
		End:      body.End,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

// Decide handles the owner's approve/reject transition. The decision comes
// as a mandatory boolean query parameter: PATCH /bookings/:id?approved=true
func (h *Handler) Decide(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	approvedStr := c.Query("approved")
	approved, err := strconv.ParseBool(approvedStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "approved must be true or false"})
		return
	}

	b, err := h.service.Decide(c.Request.Context(), id, auth.GetUserID(c), approved)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), id, auth.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

// ListMine returns the caller's own bookings, newest start first.
func (h *Handler) ListMine(c *gin.Context) {
	h.list(c, h.service.ListByBooker)
}

// ListOwned returns bookings against the caller's items, newest start first.
func (h *Handler) ListOwned(c *gin.Context) {
	h.list(c, h.service.ListByOwner)
}

func (h *Handler) list(c *gin.Context, fetch func(ctx context.Context, callerID int64, state string, page request.ListParams) ([]*booking.Booking, error)) {
	page, err := request.ParseListParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	state := c.DefaultQuery("state", string(booking.StateAll))

	bookings, err := fetch(c.Request.Context(), auth.GetUserID(c), state, page)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, page.From, page.Size))
}
