package hub

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inabottle/internal/httpapi"
	"inabottle/internal/logger"
)

type Handler struct {
	httpapi.BaseHandler
	Service *Service
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: httpapi.BaseHandler{Logger: log},
		Service:     service,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	hubs := router.Group("/hub")
	{
		hubs.POST("", h.CreateHub)
		hubs.GET("", h.ListHubs)
		hubs.GET("/:id", h.GetHub)
		hubs.PUT("/:id", h.UpdateHub)
		hubs.DELETE("/:id", h.DeleteHub)
		hubs.POST("/:id/addMessage", h.AddMessage)
		hubs.POST("/:id/message/:idMessage/addReaction", h.AddReaction)
		hubs.DELETE("/:id/message/:idMessage/removeReaction", h.RemoveReaction)
	}
}

// CreateHub godoc
// @Summary      Create a hub
// @Description  Create a hub. Missing ids, status and timestamps are filled in.
// @Tags         hubs
// @Accept       json
// @Produce      json
// @Param        hub  body      Hub  true  "Hub"
// @Success      201  {object}  Hub
// @Failure      400  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]interface{}
// @Router       /hub [post]
func (h *Handler) CreateHub(c *gin.Context) {
	var hub Hub
	if !h.BindJSON(c, &hub) {
		return
	}
	created, err := h.Service.Create(c.Request.Context(), &hub)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListHubs godoc
// @Summary      List hubs
// @Tags         hubs
// @Produce      json
// @Success      200  {array}   Hub
// @Router       /hub [get]
func (h *Handler) ListHubs(c *gin.Context) {
	hubs, err := h.Service.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, hubs)
}

// GetHub godoc
// @Summary      Get a hub by ID
// @Tags         hubs
// @Produce      json
// @Param        id   path      string  true  "Hub ID"
// @Success      200  {object}  Hub
// @Failure      404
// @Router       /hub/{id} [get]
func (h *Handler) GetHub(c *gin.Context) {
	hub, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, hub)
}

// UpdateHub godoc
// @Summary      Replace a hub
// @Description  Replace the hub stored under the id, creating it when absent.
// @Tags         hubs
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Hub ID"
// @Param        hub  body      Hub     true  "Hub"
// @Success      201  {object}  Hub
// @Failure      400  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]interface{}
// @Router       /hub/{id} [put]
func (h *Handler) UpdateHub(c *gin.Context) {
	var hub Hub
	if !h.BindJSON(c, &hub) {
		return
	}
	updated, err := h.Service.Update(c.Request.Context(), c.Param("id"), &hub)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, updated)
}

// DeleteHub godoc
// @Summary      Delete a hub
// @Tags         hubs
// @Param        id   path      string  true  "Hub ID"
// @Success      200
// @Failure      404
// @Router       /hub/{id} [delete]
func (h *Handler) DeleteHub(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// AddMessage godoc
// @Summary      Append a chat message
// @Tags         hub-messages
// @Accept       json
// @Param        id       path      string      true  "Hub ID"
// @Param        message  body      HubMessage  true  "Message"
// @Success      200
// @Failure      404
// @Failure      409  {object}  map[string]interface{}
// @Router       /hub/{id}/addMessage [post]
func (h *Handler) AddMessage(c *gin.Context) {
	var msg HubMessage
	if !h.BindJSON(c, &msg) {
		return
	}
	if err := h.Service.AppendMessage(c.Request.Context(), c.Param("id"), &msg); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// AddReaction godoc
// @Summary      React to a chat message
// @Description  Adds the reaction to the message. Unknown message ids are ignored.
// @Tags         hub-messages
// @Accept       json
// @Param        id         path      string        true  "Hub ID"
// @Param        idMessage  path      string        true  "Message ID"
// @Param        reaction   body      UserReaction  true  "Reaction"
// @Success      200
// @Failure      404
// @Failure      409  {object}  map[string]interface{}
// @Router       /hub/{id}/message/{idMessage}/addReaction [post]
func (h *Handler) AddReaction(c *gin.Context) {
	var reaction UserReaction
	if !h.BindJSON(c, &reaction) {
		return
	}
	if err := h.Service.AddReaction(c.Request.Context(), c.Param("id"), c.Param("idMessage"), reaction); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// RemoveReaction godoc
// @Summary      Remove a reaction
// @Description  Removes every reaction on the message with the same creator and reaction selector.
// @Tags         hub-messages
// @Accept       json
// @Param        id         path      string        true  "Hub ID"
// @Param        idMessage  path      string        true  "Message ID"
// @Param        reaction   body      UserReaction  true  "Reaction"
// @Success      200
// @Failure      404
// @Failure      409  {object}  map[string]interface{}
// @Router       /hub/{id}/message/{idMessage}/removeReaction [delete]
func (h *Handler) RemoveReaction(c *gin.Context) {
	var reaction UserReaction
	if !h.BindJSON(c, &reaction) {
		return
	}
	if err := h.Service.RemoveReaction(c.Request.Context(), c.Param("id"), c.Param("idMessage"), reaction); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
