package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"julianmorley.ca/con-plar/storefront/pkg/services"
)

const (
	viewPageSize  = 5
	healthTimeout = 3 * time.Second
)

func (h *Handler) renderFailure(c *gin.Context, f *services.Failure) {
	c.HTML(statusFor(f), "error.tmpl", gin.H{"title": "Error", "error": f.Message})
}

func (h *Handler) homeView(c *gin.Context) {
	res := h.deps.Products.GetProducts(c.Request.Context())
	if res.Failed() {
		h.renderFailure(c, res.Err)
		return
	}
	c.HTML(http.StatusOK, "home.tmpl", gin.H{"title": "Home", "products": res.Value, "style": "index.css"})
}

func (h *Handler) productsView(c *gin.Context) {
	res := h.deps.Products.ListProducts(c.Request.Context(), services.ListParams{
		Page:         c.Query("page"),
		Path:         "/products",
		DefaultLimit: viewPageSize,
	})
	if res.Failed() {
		h.renderFailure(c, res.Err)
		return
	}
	c.HTML(http.StatusOK, "products.tmpl", gin.H{"title": "Products", "result": res.Value, "style": "products.css"})
}

func (h *Handler) realtimeProductsView(c *gin.Context) {
	res := h.deps.Products.GetProducts(c.Request.Context())
	if res.Failed() {
		h.renderFailure(c, res.Err)
		return
	}
	c.HTML(http.StatusOK, "realtime.tmpl", gin.H{"title": "Realtime products", "products": res.Value, "style": "realTimeProducts.css"})
}

func (h *Handler) cartView(c *gin.Context) {
	res := h.deps.Carts.GetCartByID(c.Request.Context(), c.Param("cid"))
	if res.Failed() {
		h.renderFailure(c, res.Err)
		return
	}
	c.HTML(http.StatusOK, "cart.tmpl", gin.H{"title": "Cart", "cart": res.Value, "style": "cart.css"})
}

func (h *Handler) chatView(c *gin.Context) {
	res := h.deps.Chat.History(c.Request.Context())
	if res.Failed() {
		h.renderFailure(c, res.Err)
		return
	}
	c.HTML(http.StatusOK, "chat.tmpl", gin.H{"title": "Chat", "messages": res.Value, "style": "chat.css"})
}

func (h *Handler) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.deps.Health))
	healthy := true
	for name, check := range h.deps.Health {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "up"
	}

	if !healthy {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "DEGRADED", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "checks": checks})
}
