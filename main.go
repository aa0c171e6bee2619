package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"loja/internal/handlers"
	"loja/internal/middleware"
	"loja/internal/models"
	"loja/internal/repositories"
	"loja/internal/services"
	"loja/pkg/mailer"
	"loja/pkg/rabbitmq"
	"loja/pkg/ratelimit"
)

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DATABASE_DSN", "")
	viper.SetDefault("SQLITE_PATH", "loja.db")
	viper.SetDefault("JWT_SECRET", "dev-secret-change-me")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("SMTP_HOST", "")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_USERNAME", "")
	viper.SetDefault("SMTP_PASSWORD", "")
	viper.SetDefault("SMTP_FROM", "loja <no-reply@loja.local>")
	viper.SetDefault("ADMIN_EMAIL", "")
	viper.AutomaticEnv()

	appPort := viper.GetString("APP_PORT")

	// --- Database ---
	db, err := openDatabase()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{},
		&models.User{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.PinVerification{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// --- RabbitMQ (optional) ---
	var publisher services.EventPublisher
	var mqClient *rabbitmq.Client
	if url := viper.GetString("RABBITMQ_URL"); url != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: url})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		publisher = mqClient
	} else {
		log.Println("RABBITMQ_URL not set, order events disabled")
	}

	// --- Mailer ---
	var sender mailer.Sender
	if host := viper.GetString("SMTP_HOST"); host != "" {
		sender = mailer.NewSMTPSender(
			host,
			viper.GetInt("SMTP_PORT"),
			viper.GetString("SMTP_USERNAME"),
			viper.GetString("SMTP_PASSWORD"),
			viper.GetString("SMTP_FROM"),
		)
	} else {
		log.Println("SMTP_HOST not set, login PINs will be written to the log")
		sender = mailer.LogSender{}
	}

	// --- Repositories ---
	productRepo := repositories.NewGORMProductRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	pinRepo := repositories.NewGORMPinRepository(db)

	// --- Services ---
	stockService := services.NewStockService(productRepo)
	productService := services.NewProductService(productRepo, orderRepo)
	cartService := services.NewCartService(cartRepo, productRepo)
	orderService := services.NewOrderService(orderRepo, cartRepo, productRepo, stockService, publisher)
	authService := services.NewAuthService(userRepo, pinRepo, sender, viper.GetString("JWT_SECRET"), nil)
	adminService := services.NewAdminService(productRepo, orderRepo, userRepo)

	if adminEmail := viper.GetString("ADMIN_EMAIL"); adminEmail != "" {
		ensureAdmin(userRepo, adminEmail)
	}

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService)
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService)
	adminHandler := handlers.NewAdminHandler(adminService, orderService, stockService)

	authRequired := middleware.AuthRequired(authService)
	adminRequired := middleware.AdminRequired()

	// --- Fiber App ---
	app := fiber.New()
	app.Use(logger.New())

	apiV1 := app.Group("/api/v1")
	apiV1.Use(newRateLimiter())
	authHandler.RegisterRoutes(apiV1, authRequired)
	productHandler.RegisterRoutes(apiV1, authRequired, adminRequired)
	cartHandler.RegisterRoutes(apiV1, authRequired)
	orderHandler.RegisterRoutes(apiV1, authRequired, adminRequired)
	adminHandler.RegisterRoutes(apiV1, authRequired, adminRequired)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- RabbitMQ Consumer ---
	if mqClient != nil {
		go func() {
			log.Println("Starting RabbitMQ consumer for order events...")
			messageHandler := func(msg amqp.Delivery) error {
				log.Printf("Received order event %s: %s", msg.Type, string(msg.Body))
				return nil
			}
			if consumerErr := mqClient.ConsumeOrderEvents(messageHandler); consumerErr != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
			}
		}()
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// openDatabase connects to Postgres when DATABASE_DSN is set, otherwise falls
// back to a local SQLite file. TranslateError maps driver duplicate-key
// errors onto gorm.ErrDuplicatedKey so the repositories can detect them.
func openDatabase() (*gorm.DB, error) {
	cfg := &gorm.Config{TranslateError: true}
	if dsn := viper.GetString("DATABASE_DSN"); dsn != "" {
		return gorm.Open(postgres.Open(dsn), cfg)
	}
	path := viper.GetString("SQLITE_PATH")
	log.Printf("DATABASE_DSN not set, using SQLite database at %s", path)
	return gorm.Open(sqlite.Open(path), cfg)
}

// newRateLimiter builds the request limiter, backed by Redis when REDIS_URL
// is set so limits hold across instances.
func newRateLimiter() fiber.Handler {
	cfg := limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
	}
	if url := viper.GetString("REDIS_URL"); url != "" {
		storage, err := ratelimit.NewRedisStorage(url)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		cfg.Storage = storage
	}
	return limiter.New(cfg)
}

// ensureAdmin promotes the configured address to an admin account, creating
// the user if it does not exist yet.
func ensureAdmin(userRepo repositories.UserRepository, email string) {
	user, err := userRepo.GetByEmail(email)
	if err != nil {
		user = &models.User{Email: email, Name: "Admin", Role: models.RoleAdmin}
		if createErr := userRepo.Create(user); createErr != nil {
			log.Printf("Error creating admin user %s: %v", email, createErr)
			return
		}
		log.Printf("Created admin user %s", email)
		return
	}
	if user.Role != models.RoleAdmin {
		log.Printf("User %s exists with role %q, not promoting automatically", email, user.Role)
	}
}
