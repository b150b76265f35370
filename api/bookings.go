package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/tourbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/api/book", h.create)
	router.GET("/api/search_booking", h.search)
}

func (h *BookingHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.GET("/api/get_tour_bookings", h.byDeparture)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		DepartureID: first(req.TourID, req.DepartureID).Value,
		Name:        req.Name,
		Phone:       req.Phone,
		SeatNumbers: req.seats(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "booking confirmed",
		"booking_code": b.Code,
		"data":         b,
	})
}

func (h *BookingHandler) search(c *gin.Context) {
	results, err := h.service.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, results)
}

func (h *BookingHandler) byDeparture(c *gin.Context) {
	id, err := strconv.ParseInt(firstString(c.Query("tour_id"), c.Query("departureId")), 10, 64)
	if err != nil {
		respondBadRequest(c, "tour_id is required")
		return
	}

	bookings, err := h.service.ListByDeparture(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, bookings)
}
