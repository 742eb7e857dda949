package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"julianmorley.ca/con-plar/storefront/internal/router"
	"julianmorley.ca/con-plar/storefront/pkg/ai"
	"julianmorley.ca/con-plar/storefront/pkg/chat"
	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/logger"
	"julianmorley.ca/con-plar/storefront/pkg/memory"
	"julianmorley.ca/con-plar/storefront/pkg/mongo"
	"julianmorley.ca/con-plar/storefront/pkg/redis"
	"julianmorley.ca/con-plar/storefront/pkg/services"
	"julianmorley.ca/con-plar/storefront/pkg/telemetry"
)

type stores struct {
	catalog  services.CatalogStore
	carts    services.CartStore
	messages services.MessageStore
	health   map[string]router.HealthCheck
	close    func(context.Context) error
}

func openStores(ctx context.Context, cfg global.Config, log *logrus.Entry) (*stores, error) {
	if cfg.StoreDriver == global.StoreDriverMemory {
		log.Warn("using in-memory store; data is lost on restart")
		catalog := memory.NewCatalog()
		return &stores{
			catalog:  catalog,
			carts:    memory.NewCarts(catalog),
			messages: memory.NewMessages(),
			health:   map[string]router.HealthCheck{},
			close:    func(context.Context) error { return nil },
		}, nil
	}

	connectCtx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()
	store, err := mongo.Open(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureIndexes(connectCtx); err != nil {
		store.Close(context.Background())
		return nil, err
	}
	return &stores{
		catalog:  store.Products(),
		carts:    store.Carts(),
		messages: store.Messages(),
		health:   map[string]router.HealthCheck{"mongo": store.Ping},
		close:    store.Close,
	}, nil
}

func main() {
	cfg := global.LoadConfig()
	log := logger.New(logger.Options{
		Service: telemetry.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.WithError(err).Fatal("failed to start tracing")
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}

	hub := chat.NewHub(chat.WithLogger(log.WithField("component", "hub")))
	productOpts := []services.ProductOption{services.WithEvents(hub)}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.RedisAddress != "" {
		client, err := redis.Connect(ctx, cfg.RedisAddress, cfg.RedisPassword)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer client.Close()

		relay := redis.NewRelay(client, hub)
		hub.SetRelay(relay)
		productOpts = append(productOpts, services.WithCache(redis.NewProductCache(client, cfg.CacheTTL)))
		st.health["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

		g.Go(func() error {
			return relay.Run(gctx, chat.TopicChat, chat.TopicProducts)
		})
	}

	products := services.NewProductService(st.catalog, cfg.PublicBaseURL, productOpts...)
	carts := services.NewCartService(st.carts)

	var narrator services.Narrator
	if client := ai.New(ai.Config{APIKey: cfg.OpenAIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.OpenAIModel}); client != nil {
		narrator = client
	}

	engine := router.NewEngine(cfg, router.Dependencies{
		Products: products,
		Carts:    carts,
		Workflow: services.NewCartWorkflow(products, carts),
		Chat:     services.NewChatService(st.messages, hub),
		Reports:  services.NewReportService(st.catalog, narrator),
		Hub:      hub,
		Health:   st.health,
	}, log)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g.Go(func() error {
		log.WithField("addr", server.Addr).Info("http server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Closing the hub ends open event streams so Shutdown does not wait on them.
		hub.Close()
		return server.Shutdown(shutdownCtx)
	})

	exitCode := 0
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server stopped with error")
		exitCode = 1
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := st.close(closeCtx); err != nil {
		log.WithError(err).Warn("failed to close store")
	}
	if err := shutdownTracing(closeCtx); err != nil {
		log.WithError(err).Warn("failed to flush traces")
	}

	log.Info("bye")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
