package adapter

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// NetHTTP adapts a net/http request/response pair.
type NetHTTP struct {
	w          http.ResponseWriter
	r          *http.Request
	pending    []*http.Cookie // cookies set during this request, visible to later reads
	trustProxy bool
}

var _ Router = (*NetHTTP)(nil)

type NetHTTPOption func(*NetHTTP)

// WithTrustedProxy makes ClientIP honour X-Forwarded-For and X-Real-IP.
func WithTrustedProxy(trust bool) NetHTTPOption {
	return func(n *NetHTTP) {
		n.trustProxy = trust
	}
}

func NewNetHTTP(w http.ResponseWriter, r *http.Request, opts ...NetHTTPOption) *NetHTTP {
	n := &NetHTTP{w: w, r: r}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *NetHTTP) Request() *http.Request {
	return n.r
}

func (n *NetHTTP) URL() *url.URL {
	return n.r.URL
}

func (n *NetHTTP) Method() string {
	return n.r.Method
}

func (n *NetHTTP) Headers() http.Header {
	h := n.r.Header.Clone()
	if h.Get("Host") == "" && n.r.Host != "" {
		// net/http moves Host out of the header map
		h.Set("Host", n.r.Host)
	}
	return h
}

// Cookies returns the request cookies overlaid with anything set during this request.
// A cookie deleted during the request is no longer returned.
func (n *NetHTTP) Cookies() []*http.Cookie {
	merged := make(map[string]*http.Cookie)
	var order []string
	for _, c := range n.r.Cookies() {
		if _, ok := merged[c.Name]; !ok {
			order = append(order, c.Name)
		}
		merged[c.Name] = c
	}
	for _, c := range n.pending {
		if _, ok := merged[c.Name]; !ok {
			order = append(order, c.Name)
		}
		merged[c.Name] = c
	}

	out := make([]*http.Cookie, 0, len(order))
	for _, name := range order {
		c := merged[name]
		if c.MaxAge < 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (n *NetHTTP) SetCookies(cookies ...*http.Cookie) {
	for _, c := range cookies {
		http.SetCookie(n.w, c)
		n.pending = append(n.pending, c)
	}
}

func (n *NetHTTP) SetHeader(key, value string) {
	n.w.Header().Set(key, value)
}

func (n *NetHTTP) RedirectTo(location string) {
	http.Redirect(n.w, n.r, location, http.StatusFound)
}

func (n *NetHTTP) ReturnJSON(status int, body any) {
	n.w.Header().Set("Content-Type", "application/json")
	n.w.WriteHeader(status)
	if err := json.NewEncoder(n.w).Encode(body); err != nil {
		log.Err(err).Str("path", n.r.URL.Path).Msg("failed to encode JSON response")
	}
}

// ClientIP is the connection address. With WithTrustedProxy it prefers the first
// X-Forwarded-For entry, then X-Real-IP. Clients can set those headers freely, so trust
// them only when a proxy in front overwrites them; otherwise rate limit keys can be
// rotated at will.
func (n *NetHTTP) ClientIP() string {
	if n.trustProxy {
		if xff := n.r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(n.r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(n.r.RemoteAddr)
	if err != nil {
		return n.r.RemoteAddr
	}
	return host
}
