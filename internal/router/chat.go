package router

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"julianmorley.ca/con-plar/storefront/pkg/chat"
	"julianmorley.ca/con-plar/storefront/pkg/models"
)

func (h *Handler) listMessages(c *gin.Context) {
	res := h.deps.Chat.History(c.Request.Context())
	if res.Failed() {
		fail(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": res.Value})
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req models.CreateMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res := h.deps.Chat.Send(c.Request.Context(), &req)
	if res.Failed() {
		failMutation(c, res.Err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": res.Value})
}

// streamMessages sends the log once as a "history" event and then one
// "message" event per new chat line.
func (h *Handler) streamMessages(c *gin.Context) {
	session, failure := h.deps.Chat.Subscribe(c.Request.Context(), uuid.NewString())
	if failure != nil {
		fail(c, failure)
		return
	}
	defer session.Close()

	h.log.WithField("session", session.ID).Debug("chat listener joined")
	c.SSEvent("history", session.History)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case m, ok := <-session.Messages:
			if !ok {
				return false
			}
			c.SSEvent("message", m)
			return true
		}
	})
	h.log.WithField("session", session.ID).Debug("chat listener left")
}

// streamProducts sends the catalog as a "products" event and then a
// "product" event per change.
func (h *Handler) streamProducts(c *gin.Context) {
	sub := h.deps.Hub.Subscribe(chat.TopicProducts, uuid.NewString())
	defer sub.Close()

	snapshot := h.deps.Products.GetProducts(c.Request.Context())
	if snapshot.Failed() {
		fail(c, snapshot.Err)
		return
	}
	c.SSEvent("products", snapshot.Value)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent("product", gin.H{"type": event.Name, "data": event.Data})
			return true
		}
	})
}
