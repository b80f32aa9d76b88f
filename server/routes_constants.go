package server

// Route path constants
const (
	// Login & Logout
	RouteLogin      = "/login"
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Account
	RouteSignup         = "/auth/signup"
	RouteForgotPassword = "/auth/forgot-password"

	// API Routes
	RouteAPISession = "/api/session"
	RouteMetrics    = "/metrics"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
)
