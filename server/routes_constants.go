package server

const (
	RouteHealth        = "/healthz"
	RouteSession       = "/api/auth/session"
	RouteSignIn        = "/api/auth/signin"
	RouteSignUp        = "/api/auth/signup"
	RouteSignOut       = "/api/auth/signout"
	RouteClearError    = "/api/auth/clear-error"
	RouteRouteDecision = "/api/auth/route-decision"
)
