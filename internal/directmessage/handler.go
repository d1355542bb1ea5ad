package directmessage

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
	direct := router.Group("/direct")
	{
		direct.POST("", h.Create)
		direct.GET("", h.List)
		direct.GET("/:id", h.Get)
		direct.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var msg DirectMessage
	if !h.BindJSON(c, &msg) {
		return
	}

	saved, err := h.service.Create(c.Request.Context(), &msg)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// List accepts an optional huntId query parameter.
func (h *Handler) List(c *gin.Context) {
	msgs, err := h.service.List(c.Request.Context(), c.Query("huntId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) Get(c *gin.Context) {
	msg, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
