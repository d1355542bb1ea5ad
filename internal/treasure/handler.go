package treasure

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inabottle/internal/httpapi"
	"inabottle/internal/logger"
)

type Handler struct {
	httpapi.BaseHandler
	service *Service
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: httpapi.BaseHandler{Logger: log},
		service:     service,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	hunts := router.Group("/treasure")
	{
		hunts.POST("", h.Create)
		hunts.GET("", h.List)
		hunts.GET("/outbox/pending", h.PendingEvents)
		hunts.GET("/:id", h.Get)
		hunts.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var hunt TreasureHunt
	if !h.BindJSON(c, &hunt) {
		return
	}

	created, err := h.service.Create(c.Request.Context(), &hunt)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) List(c *gin.Context) {
	hunts, err := h.service.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, hunts)
}

func (h *Handler) Get(c *gin.Context) {
	hunt, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, hunt)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) PendingEvents(c *gin.Context) {
	pending, err := h.service.PendingEvents(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}
