package api

import (
	"strconv"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/service/departures"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type DepartureHandler struct {
	service departures.DepartureUseCase
	log     logrus.FieldLogger
}

type catalogResponse struct {
	Departures []domain.Departure  `json:"departures"`
	Stats      domain.CatalogStats `json:"stats"`
}

func NewDepartureHandler(service departures.DepartureUseCase, log logrus.FieldLogger) *DepartureHandler {
	return &DepartureHandler{service: service, log: log}
}

func (h *DepartureHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.index)
	router.GET("/tours", h.list)
	router.GET("/api/tours", h.list)
	router.GET("/book/:id", h.seatMap)
}

func (h *DepartureHandler) index(c *gin.Context) {
	list, ok := h.prunedList(c)
	if !ok {
		return
	}
	respondData(c, catalogResponse{Departures: list, Stats: domain.ComputeStats(list)})
}

func (h *DepartureHandler) list(c *gin.Context) {
	list, ok := h.prunedList(c)
	if !ok {
		return
	}
	respondData(c, list)
}

// prunedList drops expired departures before reading the catalog. A failed
// prune is logged and the listing still served.
func (h *DepartureHandler) prunedList(c *gin.Context) ([]domain.Departure, bool) {
	ctx := c.Request.Context()
	if _, err := h.service.Prune(ctx); err != nil {
		h.log.WithError(err).WithField("request_id", GetRequestID(c)).Warn("prune before listing failed")
	}

	list, err := h.service.List(ctx)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return list, true
}

func (h *DepartureHandler) seatMap(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "invalid departure id")
		return
	}

	view, err := h.service.SeatMap(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, view)
}
