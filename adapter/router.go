// Package adapter defines the request/response capabilities the auth core needs from a
// web framework, and a net/http implementation of them.
package adapter

import (
	"net/http"
	"net/url"
)

// Router is implemented once per web framework. The core never branches on which
// framework is behind it.
type Router interface {
	Request() *http.Request
	URL() *url.URL
	Method() string
	Headers() http.Header
	Cookies() []*http.Cookie
	SetCookies(cookies ...*http.Cookie)
	SetHeader(key, value string)
	RedirectTo(location string)
	ReturnJSON(status int, body any)
	ClientIP() string
}
