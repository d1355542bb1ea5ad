package points

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inabottle/internal/httpapi"
	"inabottle/internal/logger"
)

// Handler exposes the read side of the points history. Writes only arrive
// through the broker.
type Handler struct {
	httpapi.BaseHandler
	repo Repository
}

func NewHandler(repo Repository, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: httpapi.BaseHandler{Logger: log},
		repo:        repo,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	points := router.Group("/points")
	{
		points.GET("", h.List)
		points.GET("/balance/:createdBy", h.Balance)
		points.GET("/:id", h.Get)
	}
}

// List accepts an optional createdBy query parameter.
func (h *Handler) List(c *gin.Context) {
	history, err := h.repo.Find(c.Request.Context(), c.Query("createdBy"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) Get(c *gin.Context) {
	entry, err := h.repo.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) Balance(c *gin.Context) {
	balance, err := h.repo.Balance(c.Request.Context(), c.Param("createdBy"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}
