package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/nayoung-dev/stamprally/config"
	"github.com/nayoung-dev/stamprally/internal/events"
	"github.com/nayoung-dev/stamprally/internal/handlers"
	"github.com/nayoung-dev/stamprally/internal/logging"
	"github.com/nayoung-dev/stamprally/internal/middleware"
	"github.com/nayoung-dev/stamprally/internal/notify"
	"github.com/nayoung-dev/stamprally/internal/stamps"
)

// Start wires the application together and serves until interrupted.
func Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(&cfg.Log)
	gin.SetMode(cfg.Server.Mode)

	db, err := config.InitDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	sink, closeSink, err := buildSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	r := gin.New()
	r.Use(gin.Recovery())
	setupRoutes(r, db, cfg, sink, log)

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: r,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildSink picks the kafka sink when enabled, logging otherwise —
// notifications degrade to the structured log, never block startup.
func buildSink(ctx context.Context, cfg *config.Config, log *logrus.Logger) (notify.Sink, func(), error) {
	if !cfg.Notify.KafkaEnabled {
		return notify.NewLogSink(log), func() {}, nil
	}

	brokers := strings.Split(cfg.Notify.KafkaBrokers, ",")
	kafkaSink, err := notify.NewKafkaSink(brokers, cfg.Notify.ClientID, cfg.Notify.KafkaTopic, log)
	if err != nil {
		return nil, nil, fmt.Errorf("create kafka sink: %w", err)
	}
	if err := kafkaSink.EnsureTopic(ctx, int32(cfg.Notify.Partitions), int16(cfg.Notify.Replication)); err != nil {
		log.WithError(err).Warn("failed to ensure notification topic")
	}
	return kafkaSink, kafkaSink.Close, nil
}

func setupRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, sink notify.Sink, log *logrus.Logger) {
	store := stamps.NewStore(db)
	cards := stamps.NewCardManager(store)
	catalog := events.NewGormCatalog(db)
	engine := stamps.NewEngine(store, cards, catalog, sink, log)
	issuer := stamps.NewIssuer(store, cards, sink, log, stamps.IssuerConfig{
		CodePrefix:  cfg.Coupon.CodePrefix,
		Description: cfg.Coupon.Description,
		ExpiryDays:  cfg.Coupon.ExpiryDays,
	})
	admin := stamps.NewAdmin(store, cards, catalog, sink, log)
	queries := stamps.NewQueries(store)

	stampHandler := handlers.NewStampHandler(engine, queries, admin)
	couponHandler := handlers.NewCouponHandler(issuer, queries)
	adminHandler := handlers.NewAdminHandler(db, admin, issuer)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := r.Group("/v1")
	protected.Use(middleware.IdentityMiddleware(cfg.Auth.JWTSecret))
	{
		stampRoutes := protected.Group("/stamps")
		{
			stampRoutes.POST("/redeem",
				middleware.RedeemRateLimit(cfg.RateLimit.RedeemPerSecond, cfg.RateLimit.RedeemBurst),
				stampHandler.Redeem)
			stampRoutes.GET("/card", stampHandler.GetCard)
			stampRoutes.POST("/viewed", stampHandler.MarkViewed)
		}

		couponRoutes := protected.Group("/coupons")
		{
			couponRoutes.POST("/issue", couponHandler.Issue)
			couponRoutes.GET("", couponHandler.List)
		}

		adminRoutes := protected.Group("/admin")
		adminRoutes.Use(middleware.AdminOnly())
		{
			adminRoutes.POST("/events", adminHandler.CreateEvent)
			adminRoutes.POST("/claim-codes", adminHandler.CreateClaimCode)
			adminRoutes.POST("/stamps/grant", adminHandler.GrantStamp)
			adminRoutes.PATCH("/coupons/:id/used", adminHandler.SetCouponUsed)
			adminRoutes.DELETE("/entries/:id", adminHandler.DeleteEntry)
			adminRoutes.DELETE("/cards/:id", adminHandler.DeleteCard)
		}
	}
}
