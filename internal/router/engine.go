package router

import (
	"context"
	"embed"
	"html/template"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"julianmorley.ca/con-plar/storefront/pkg/chat"
	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/services"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// HealthCheck reports whether one backing service answers.
type HealthCheck func(ctx context.Context) error

type Dependencies struct {
	Products *services.ProductService
	Carts    *services.CartService
	Workflow *services.CartWorkflow
	Chat     *services.ChatService
	Reports  *services.ReportService
	Hub      *chat.Hub
	Health   map[string]HealthCheck
}

type Handler struct {
	cfg  global.Config
	deps Dependencies
	log  *logrus.Entry
}

func NewEngine(cfg global.Config, deps Dependencies, log *logrus.Entry) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(otelgin.Middleware("storefront"))
	router.Use(RequestLogger(log))
	router.Use(Recovery(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "X-Cache"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.tmpl")))
	if cfg.StaticDir != "" {
		router.Static("/static", cfg.StaticDir)
	}

	h := &Handler{cfg: cfg, deps: deps, log: log}
	h.routes(router)
	return router
}

func (h *Handler) routes(router *gin.Engine) {
	router.GET("/", h.homeView)
	router.GET("/products", h.productsView)
	router.GET("/realtimeproducts", h.realtimeProductsView)
	router.GET("/carts/:cid", h.cartView)
	router.GET("/chat", h.chatView)

	api := router.Group("/api")
	{
		api.GET("/health", h.healthCheck)

		products := api.Group("/products")
		{
			products.GET("/", h.listProducts)
			products.POST("/", h.createProduct)
			products.GET("/report", h.catalogReport)
			products.GET("/stream", h.streamProducts)
			products.GET("/:pid", h.getProduct)
			products.PUT("/:pid", h.updateProduct)
			products.DELETE("/:pid", h.deleteProduct)
		}

		carts := api.Group("/carts")
		{
			carts.POST("/", h.createCart)
			carts.GET("/:cid", h.getCart)
			carts.PUT("/:cid", h.replaceCartProducts)
			carts.DELETE("/:cid", h.emptyCart)
			carts.POST("/:cid/product/:pid", h.addProductToCart)
			carts.PUT("/:cid/product/:pid", h.setCartQuantity)
			carts.DELETE("/:cid/product/:pid", h.removeProductFromCart)
		}

		messages := api.Group("/messages")
		{
			messages.GET("/", h.listMessages)
			messages.POST("/", h.sendMessage)
			messages.GET("/stream", h.streamMessages)
		}
	}
}
