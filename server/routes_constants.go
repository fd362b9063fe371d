package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteAuthLogin        = "/auth/login"
	RouteAuthLogout       = "/auth/logout"
	RouteAuthRefreshToken = "/auth/refresh-token"

	// Auth Routes - Signup & Email Verification
	RouteSignup             = "/auth/signup"
	RouteVerifyEmail        = "/auth/verify-email"
	RouteResendVerification = "/auth/resend-verification"

	// Auth Routes - Password Management
	RouteForgotPassword = "/auth/forgot-password"
	RouteResetPassword  = "/auth/reset-password"

	// API Routes
	RouteAPIUsersMe = "/api/users/me"
)
