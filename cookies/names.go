package cookies

// Fixed cookie names. Pending-authorization cookies are scoped to one provider.
const (
	SessionCookie = "light_auth_session"
	CSRFCookie    = "light_auth_csrf_token"

	stateSuffix        = "_light_auth_state"
	codeVerifierSuffix = "_light_auth_code_verifier"
	callbackURLSuffix  = "_light_auth_callback_url"
)

func StateCookie(provider string) string {
	return provider + stateSuffix
}

func CodeVerifierCookie(provider string) string {
	return provider + codeVerifierSuffix
}

func CallbackURLCookie(provider string) string {
	return provider + callbackURLSuffix
}
