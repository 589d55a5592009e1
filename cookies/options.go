package cookies

import (
	"net/http"
	"time"
)

// Options holds the attributes shared by every cookie the core writes.
type Options struct {
	Secure bool   // Secure attribute, on in production
	Path   string // defaults to "/"
}

// New builds an httpOnly, SameSite=Lax cookie. maxAge <= 0 means a browser-session cookie.
func (o Options) New(name, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     o.path(),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge.Seconds())
		c.Expires = time.Now().Add(maxAge)
	}
	return c
}

// Expired builds a deletion cookie for name.
func (o Options) Expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     o.path(),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	}
}

func (o Options) path() string {
	if o.Path == "" {
		return "/"
	}
	return o.Path
}

// Find returns the value of the named cookie.
func Find(cookies []*http.Cookie, name string) (string, bool) {
	for _, c := range cookies {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}
