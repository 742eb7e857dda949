package router

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"

	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/services"
)

func (h *Handler) listProducts(c *gin.Context) {
	res := h.deps.Products.ListProducts(c.Request.Context(), services.ListParams{
		Category: c.Query("category"),
		Stock:    c.Query("stock"),
		Sort:     c.Query("sort"),
		Page:     c.Query("page"),
		Limit:    c.Query("limit"),
		RawQuery: c.Request.URL.RawQuery,
		Path:     "/api/products",
	})
	if res.Failed() {
		c.JSON(statusFor(res.Err), gin.H{"status": "error", "error": res.Err.Message})
		return
	}
	c.JSON(http.StatusOK, res.Value)
}

func (h *Handler) getProduct(c *gin.Context) {
	res, cache := h.deps.Products.GetProductByID(c.Request.Context(), c.Param("pid"))
	if cache != "" {
		c.Header("X-Cache", string(cache))
	}
	if res.Failed() {
		fail(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, res.Value)
}

// createProduct takes a multipart form with at least one image under
// "thumbnails" alongside the product fields.
func (h *Handler) createProduct(c *gin.Context) {
	var headers []*multipart.FileHeader
	if c.ContentType() == binding.MIMEMultipartPOSTForm {
		if form, err := c.MultipartForm(); err == nil {
			headers = form.File["thumbnails"]
		}
	}
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, global.FailedMutation("error uploading image"))
		return
	}

	var req models.CreateProductRequest
	if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
		c.JSON(http.StatusBadRequest, global.FailedMutation(err.Error()))
		return
	}

	thumbnails, saved, err := h.saveThumbnails(c, headers)
	if err != nil {
		h.log.WithError(err).Warn("thumbnail upload failed")
		c.JSON(http.StatusBadRequest, global.FailedMutation("error uploading image"))
		return
	}
	req.Thumbnails = thumbnails

	res := h.deps.Products.AddProduct(c.Request.Context(), &req)
	if res.Failed() {
		for _, f := range saved {
			os.Remove(f)
		}
		failMutation(c, res.Err)
		return
	}
	c.JSON(http.StatusCreated, global.MutationResponse{Success: true, Product: res.Value})
}

// saveThumbnails writes the uploaded images and returns their public paths
// along with the files written.
func (h *Handler) saveThumbnails(c *gin.Context, headers []*multipart.FileHeader) ([]string, []string, error) {
	if err := os.MkdirAll(h.cfg.UploadDir, 0o755); err != nil {
		return nil, nil, err
	}

	thumbnails := make([]string, 0, len(headers))
	var written []string
	for _, header := range headers {
		name := uuid.NewString() + filepath.Ext(header.Filename)
		dst := filepath.Join(h.cfg.UploadDir, name)
		if err := c.SaveUploadedFile(header, dst); err != nil {
			for _, f := range written {
				os.Remove(f)
			}
			return nil, nil, err
		}
		written = append(written, dst)
		thumbnails = append(thumbnails, path.Join("/static/uploads", name))
	}
	return thumbnails, written, nil
}

func (h *Handler) updateProduct(c *gin.Context) {
	var update models.ProductUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, global.FailedMutation(err.Error()))
		return
	}

	res := h.deps.Products.UpdateProduct(c.Request.Context(), c.Param("pid"), &update)
	if res.Failed() {
		failMutation(c, res.Err)
		return
	}
	c.JSON(http.StatusCreated, global.MutationResponse{Success: true, Product: res.Value})
}

func (h *Handler) deleteProduct(c *gin.Context) {
	res := h.deps.Products.DeleteProduct(c.Request.Context(), c.Param("pid"))
	if res.Failed() {
		failMutation(c, res.Err)
		return
	}
	c.JSON(http.StatusCreated, global.MutationResponse{
		Success: true,
		Message: fmt.Sprintf("product %s deleted", res.Value.Hex()),
	})
}

func (h *Handler) catalogReport(c *gin.Context) {
	res := h.deps.Reports.CatalogReport(c.Request.Context())
	if res.Failed() {
		fail(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, res.Value)
}
