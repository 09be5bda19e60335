package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/mkassem/veridian_backend/controllers"
	"github.com/mkassem/veridian_backend/middleware"
	"github.com/mkassem/veridian_backend/websocket"
)

// RegisterAuthRoutes sets up the signin, signup and assessment routes
func RegisterAuthRoutes(e *echo.Echo, authController *controllers.AuthController, signupController *controllers.SignupController, assessmentController *controllers.AssessmentController, hub *websocket.Hub) {
	// Public signup routes
	e.POST("/api/auth/signup", signupController.Signup)
	e.GET("/api/auth/signup/:id", signupController.GetSignup)

	// Passwordless signin routes
	e.POST("/api/auth/signin", authController.Signin)
	e.POST("/api/auth/signin/validate-otp", authController.ValidateOTP)
	e.POST("/api/auth/signin/validate-qrcode", authController.ValidateQRCode)
	e.GET("/api/auth/signin/qrcode/:code", authController.SigninQRCode)
	e.GET("/api/auth/signin/qrcode/:code/base64", authController.SigninQRCodeBase64)

	// Signin handoff channel
	e.GET("/ws/signin/:code", func(c echo.Context) error {
		return websocket.HandleSigninChannel(c, hub)
	})

	// Assessments
	e.POST("/api/users/:account_id/assessments", assessmentController.Assess)

	// Authenticated routes
	authGroup := e.Group("/api/auth")
	authGroup.Use(middleware.JWTMiddleware())
	authGroup.GET("/validate-token", authController.ValidateToken)
}
