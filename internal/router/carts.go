package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/services"
)

func (h *Handler) createCart(c *gin.Context) {
	res := h.deps.Carts.AddCart(c.Request.Context())
	if res.Failed() {
		failMutation(c, res.Err)
		return
	}
	c.JSON(http.StatusCreated, global.MutationResponse{Success: true, Cart: res.Value})
}

func (h *Handler) getCart(c *gin.Context) {
	res := h.deps.Carts.GetCartByID(c.Request.Context(), c.Param("cid"))
	if res.Failed() {
		fail(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, global.CartsResponse{Carts: res.Value})
}

func (h *Handler) addProductToCart(c *gin.Context) {
	res := h.deps.Workflow.AddProduct(c.Request.Context(), c.Param("cid"), c.Param("pid"))
	if res.Failed() {
		failMutation(c, res.Err)
		return
	}
	c.JSON(http.StatusCreated, global.MutationResponse{Success: true, Cart: res.Value})
}

func (h *Handler) replaceCartProducts(c *gin.Context) {
	var req models.CartProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Products == nil {
		badRequest(c, "products must be an array")
		return
	}
	writeCart(c, h.deps.Workflow.ReplaceProducts(c.Request.Context(), c.Param("cid"), req.Products))
}

func (h *Handler) setCartQuantity(c *gin.Context) {
	var req models.QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Quantity == nil {
		badRequest(c, "quantity is required")
		return
	}
	writeCart(c, h.deps.Carts.UpdateProductQuantityFromCart(c.Request.Context(), c.Param("cid"), c.Param("pid"), *req.Quantity))
}

func (h *Handler) removeProductFromCart(c *gin.Context) {
	writeCart(c, h.deps.Carts.DeleteProductFromCart(c.Request.Context(), c.Param("cid"), c.Param("pid")))
}

func (h *Handler) emptyCart(c *gin.Context) {
	writeCart(c, h.deps.Carts.EmptyCartByID(c.Request.Context(), c.Param("cid")))
}

func writeCart(c *gin.Context, res services.Result[*models.Cart]) {
	if res.Failed() {
		fail(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, global.CartsResponse{Carts: res.Value})
}
