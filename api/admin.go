package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/Domenick1991/tourbooking/internal/auth"
	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/service/booking"
	"github.com/Domenick1991/tourbooking/internal/service/departures"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	auth         *auth.Authenticator
	departures   departures.DepartureUseCase
	bookings     booking.BookingUseCase
	secureCookie bool
	log          logrus.FieldLogger
}

type dashboardResponse struct {
	Departures    []domain.Departure  `json:"tours"`
	Bookings      []domain.Booking    `json:"bookings"`
	TotalTours    int                 `json:"total_tours"`
	TotalBookings int                 `json:"total_bookings"`
	Stats         domain.CatalogStats `json:"stats"`
}

func NewAdminHandler(a *auth.Authenticator, d departures.DepartureUseCase, b booking.BookingUseCase, secureCookie bool, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{auth: a, departures: d, bookings: b, secureCookie: secureCookie, log: log}
}

func (h *AdminHandler) Register(router *gin.RouterGroup) {
	router.GET(auth.LoginPath, h.loginForm)
	router.POST(auth.LoginPath, h.login)
	router.POST("/admin/logout", h.logout)
}

func (h *AdminHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.GET("/admin", h.dashboard)
	router.POST("/api/create_tour", h.createTour)
	router.POST("/api/delete_tour", h.deleteTour)
}

func (h *AdminHandler) loginForm(c *gin.Context) {
	respondData(c, gin.H{
		"action": auth.LoginPath,
		"method": http.MethodPost,
		"fields": []string{"password"},
	})
}

func (h *AdminHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "password is required")
		return
	}

	token, expires, err := h.auth.Login(req.Password)
	if errors.Is(err, auth.ErrInvalidPassword) {
		h.log.WithFields(logrus.Fields{"ip": c.ClientIP(), "request_id": GetRequestID(c)}).Warn("admin login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "wrong password"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, int(time.Until(expires).Seconds()), "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "expires_at": expires.Format(time.RFC3339)})
}

func (h *AdminHandler) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.departures.List(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	all, err := h.bookings.ListAll(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	stats, err := h.departures.Stats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, dashboardResponse{
		Departures:    list,
		Bookings:      all,
		TotalTours:    len(list),
		TotalBookings: len(all),
		Stats:         stats,
	})
}

func (h *AdminHandler) createTour(c *gin.Context) {
	var req createTourRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	d, err := h.departures.Create(c.Request.Context(), departures.CreateDepartureInput{
		Date:        req.Date,
		Time:        req.Time,
		Destination: req.Destination,
		Vehicle:     firstString(req.VehicleModel, req.Vehicle),
		Capacity:    int(first(req.MaxSeats, req.Capacity).Value),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tour_id": d.ID, "data": d})
}

func (h *AdminHandler) deleteTour(c *gin.Context) {
	var req deleteTourRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	id := first(req.TourID, req.DepartureID)
	if !id.Set {
		respondBadRequest(c, "tour_id is required")
		return
	}

	if err := h.departures.Delete(c.Request.Context(), id.Value); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
