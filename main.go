package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/mkassem/veridian_backend/config"
	"github.com/mkassem/veridian_backend/controllers"
	"github.com/mkassem/veridian_backend/middleware"
	"github.com/mkassem/veridian_backend/repositories"
	"github.com/mkassem/veridian_backend/routes"
	"github.com/mkassem/veridian_backend/services"
	"github.com/mkassem/veridian_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis
	redisClient := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()

	// Create the signin channel hub
	hub := websocket.NewHub()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Veridian Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Initialize repositories
	userRepo := repositories.NewUserRepository(client)
	codeRepo := repositories.NewSigninCodeRepository(client)
	logRepo := repositories.NewAssessmentLogRepository(client)

	// Initialize services
	incogniaService := services.NewIncogniaService()
	mailService := services.NewMailService()

	// Initialize controllers
	authController := controllers.NewAuthController(userRepo, codeRepo, incogniaService, mailService, hub, redisClient)
	signupController := controllers.NewSignupController(userRepo, incogniaService)
	assessmentController := controllers.NewAssessmentController(userRepo, incogniaService, logRepo)

	// Register routes
	routes.RegisterAuthRoutes(e, authController, signupController, assessmentController, hub)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
