package server

// Route path constants
// Auth endpoint segments are relative to the configured base path
const (
	SegmentCSRF          = "csrf"
	SegmentSession       = "session"
	SegmentSetSession    = "set_session"
	SegmentUser          = "user"
	SegmentSetUser       = "set_user"
	SegmentLogin         = "login"
	SegmentLogout        = "logout"
	SegmentCallback      = "callback"
	SegmentCredentials   = "credentials"
	SegmentRegister      = "register"
	SegmentResetPassword = "reset-password"
	SegmentRequest       = "request"
	SegmentConfirm       = "confirm"

	// Query parameters
	QueryCallbackURL = "callbackUrl"
	QueryRevokeToken = "revokeToken"

	// Server routes outside the base path
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
