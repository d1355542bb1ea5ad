package user

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
	users := router.Group("/user")
	{
		users.POST("", h.Create)
		users.POST("/login", h.Login)
		users.GET("", h.List)
		users.GET("/:email", h.Get)
		users.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var u User
	if !h.BindJSON(c, &u) {
		return
	}
	created, err := h.service.Create(c.Request.Context(), &u)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) Login(c *gin.Context) {
	var u User
	if !h.BindJSON(c, &u) {
		return
	}
	logged, err := h.service.Login(c.Request.Context(), &u)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, logged)
}

func (h *Handler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) Get(c *gin.Context) {
	u, err := h.service.Get(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
