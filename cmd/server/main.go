package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/flightbooker/backend/internal/config"
	"github.com/flightbooker/backend/internal/database"
	"github.com/flightbooker/backend/internal/handlers"
	"github.com/flightbooker/backend/internal/middleware"
	"github.com/flightbooker/backend/internal/models"
	"github.com/flightbooker/backend/internal/services"
	"github.com/flightbooker/backend/pkg/jwt"
	"github.com/flightbooker/backend/pkg/mailer"
	"github.com/flightbooker/backend/pkg/receipt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting FlightBooker backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	catalogRepo := database.NewCatalogRepository(db)
	flightRepo := database.NewFlightRepository(db.DB)
	bookingRepo := database.NewBookingRepository(db.DB)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	var receiptMailer mailer.Mailer
	if cfg.Mailer.Mode == "production" {
		logger.Info("Receipt mailer in production mode")
		receiptMailer = mailer.NewSMTPMailer(mailer.Config{
			Host:     cfg.Mailer.SMTPHost,
			Port:     cfg.Mailer.SMTPPort,
			From:     cfg.Mailer.From,
			Username: cfg.Mailer.Username,
			Password: cfg.Mailer.Password,
		})
	} else {
		logger.Info("Receipt mailer in development mode (receipts are logged, not sent)")
		receiptMailer = mailer.NewDevMailer(logger)
	}

	receiptSvc := services.NewReceiptService(receipt.NewTextRenderer(), receiptMailer, logger)
	paymentSvc := services.NewPaymentService(cfg.Payment.SuccessProbability, logger)
	bookingSvc := services.NewBookingService(bookingRepo, flightRepo, userRepo, paymentSvc, receiptSvc, cfg.Booking, logger)
	searchSvc := services.NewSearchService(flightRepo, catalogRepo, logger)
	feedSvc := services.NewFeedService(flightRepo, catalogRepo, logger)
	simulatorSvc := services.NewDemandSimulatorService(flightRepo, cfg.Simulator, logger)
	reaperSvc := services.NewReaperService(bookingRepo, logger)

	// Start background jobs
	cronService := services.NewCronService(simulatorSvc, reaperSvc, cfg.Simulator, cfg.Booking, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	logger.Info("Services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userRepo, jwtService, logger)
	catalogHandler := handlers.NewCatalogHandler(catalogRepo, logger)
	flightHandler := handlers.NewFlightHandler(searchSvc, flightRepo, catalogRepo, logger)
	bookingHandler := handlers.NewBookingHandler(bookingSvc, logger)
	feedHandler := handlers.NewFeedHandler(feedSvc, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Authentication routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.GET("/profile", middleware.AuthMiddleware(jwtService), authHandler.Profile)
		}

		// Flight search and detail (public)
		flights := v1.Group("/flights")
		{
			flights.GET("", flightHandler.Search)
			flights.GET("/:id", flightHandler.GetFlight)
			flights.GET("/:id/seats", flightHandler.GetSeatMap)
			flights.GET("/:id/fare-history", flightHandler.GetFareHistory)
		}

		// Catalog listings (public)
		v1.GET("/airports", catalogHandler.ListAirports)
		v1.GET("/airlines", catalogHandler.ListAirlines)
		v1.GET("/airlines/:code/schedule", feedHandler.Schedule)

		// PNR lookups: the bare status view is public and redacted, the full
		// record and the receipt document require the owner or staff
		v1.GET("/pnr/:pnr", bookingHandler.PNRStatus)
		v1.GET("/pnr/:pnr/booking", middleware.AuthMiddleware(jwtService), bookingHandler.GetBookingByPNR)
		v1.GET("/pnr/:pnr/receipt", middleware.AuthMiddleware(jwtService), bookingHandler.Receipt)

		// Booking routes (protected)
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService))
		{
			bookings.POST("", bookingHandler.CreateHold)
			bookings.GET("", bookingHandler.ListBookings)
			bookings.GET("/:reference", bookingHandler.GetBooking)
			bookings.POST("/:reference/pay", bookingHandler.Pay)
			bookings.POST("/:reference/cancel", bookingHandler.Cancel)
		}

		// Staff operations (airline staff / airport authority)
		staff := v1.Group("/staff")
		staff.Use(middleware.AuthMiddleware(jwtService))
		staff.Use(middleware.RequireRole(
			models.RoleAirlineStaff,
			models.RoleAirportAuthority,
			models.RoleAdmin,
		))
		{
			staff.PATCH("/flights/:id/status", flightHandler.UpdateStatus)
			staff.PATCH("/flights/:id/gate", flightHandler.AssignGate)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService))
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/airports", catalogHandler.CreateAirport)
			admin.POST("/airlines", catalogHandler.CreateAirline)
			admin.POST("/aircraft", catalogHandler.CreateAircraft)
			admin.GET("/aircraft", catalogHandler.ListAircraft)
			admin.POST("/flights", flightHandler.CreateFlight)

			// Manual job triggers for debugging
			admin.POST("/cron/demand-tick", func(c *gin.Context) {
				cronService.RunDemandTickNow()
				c.JSON(http.StatusOK, gin.H{"message": "Demand tick triggered"})
			})
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if actor, ok := middleware.GetActor(c); ok {
			fields["user_id"] = actor.UserID
			fields["role"] = actor.Role
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
