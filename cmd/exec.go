package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ticketmarket/config"
	"ticketmarket/internal/handlers"
	"ticketmarket/internal/services"
	"ticketmarket/internal/services/gateway"
	"ticketmarket/monitoring"
	"ticketmarket/security"
	"ticketmarket/utils"

	_ "ticketmarket/migrations"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" {
		pn = pubnub.NewPubNub(pnConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	monitor := monitoring.NewMonitor()
	notifier := services.NewNotifyService(pn)
	inventoryService := services.NewInventoryService(app, redisClient, cfg.AvailabilityCacheTTL)
	ticketService := services.NewTicketService(app, notifier, monitor)
	orderService := services.NewOrderService(app, inventoryService, ticketService, notifier, monitor)
	eventService := services.NewEventService(app, ticketService, notifier)
	gatewayClient := gateway.New(cfg.Gateway, orderService, redisClient, monitor)
	scheduler := services.NewScheduler(orderService, eventService, monitor, cfg.OrderSweepInterval, cfg.EventSweepInterval)

	// Initialize handlers
	orderHandler := handlers.NewOrderHandler(app, orderService, cfg.OrderExpiryWindow)
	paymentHandler := handlers.NewPaymentHandler(app, gatewayClient, orderService)
	checkinHandler := handlers.NewCheckinHandler(app, ticketService)
	eventHandler := handlers.NewEventHandler(app, eventService, inventoryService)
	adminHandler := handlers.NewAdminHandler(app, eventService, orderService, redisClient)

	rateLimiter := security.NewRateLimiter(redisClient, cfg.OrderRateLimit, cfg.OrderRateWindow)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Sweeps only start once the database is bootstrapped.
		scheduler.Start(ctx)

		// Event endpoints
		e.Router.GET("/api/v1/events", eventHandler.ListEvents)
		e.Router.GET("/api/v1/events/{eventId}", eventHandler.GetEvent)
		e.Router.GET("/api/v1/events/{eventId}/availability", eventHandler.GetAvailability)

		// Order endpoints
		e.Router.POST("/api/v1/orders", orderHandler.CreateOrder).
			Bind(rateLimiter.BotFilter()).
			Bind(rateLimiter.OrderRateLimit())
		e.Router.GET("/api/v1/orders", orderHandler.ListOrders)
		e.Router.GET("/api/v1/orders/{orderId}", orderHandler.GetOrder)
		e.Router.POST("/api/v1/orders/{orderId}/cancel", orderHandler.CancelOrder)
		e.Router.GET("/api/v1/orders/{orderId}/tickets", checkinHandler.ListOrderTickets)

		// Payment endpoints
		e.Router.POST("/api/v1/orders/{orderId}/pay", paymentHandler.CreatePaymentURL)
		e.Router.POST("/api/v1/payment/notify", paymentHandler.Notify)
		e.Router.GET("/api/v1/payment/return", paymentHandler.Return)

		// Gate endpoint
		e.Router.POST("/api/v1/checkin", checkinHandler.CheckIn)

		// Admin endpoints
		e.Router.POST("/api/v1/admin/events/{eventId}/approve", adminHandler.ApproveEvent)
		e.Router.POST("/api/v1/admin/events/{eventId}/reject", adminHandler.RejectEvent)
		e.Router.POST("/api/v1/admin/events/{eventId}/demote", adminHandler.DemoteEvent)
		e.Router.POST("/api/v1/admin/events/{eventId}/cancel", adminHandler.CancelEvent)
		e.Router.POST("/api/v1/admin/orders/{orderId}/refund", adminHandler.RefundOrder)

		// Health check
		e.Router.GET("/health", adminHandler.Health)

		// Prometheus metrics
		if cfg.EnableMetrics {
			e.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down background workers...")
	cancel()
}
