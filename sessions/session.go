package sessions

import (
	"encoding/json"
	"time"
)

// Session is the authenticated state carried in the session cookie. Only ExpiresAt
// changes after creation (renewal).
type Session struct {
	ID             string         // Unique session identifier (UUID)
	ProviderUserID string         // Subject as reported by the provider
	Email          string         // Email claim, may be empty
	Name           string         // Display name claim, may be empty
	ProviderName   string         // Provider that authenticated the user
	ExpiresAt      time.Time      // Absolute expiry, moved forward on renewal
	Claims         map[string]any // Extra provider claims, flattened beside the named fields in JSON
}

// Complete reports whether the session has the fields required to be trusted. An
// incomplete session is treated as absent.
func (s *Session) Complete() bool {
	return s != nil && s.ID != "" && s.ProviderUserID != "" && !s.ExpiresAt.IsZero()
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Clone returns a copy that shares no maps with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Claims != nil {
		c.Claims = make(map[string]any, len(s.Claims))
		for k, v := range s.Claims {
			c.Claims[k] = v
		}
	}
	return &c
}

var namedFields = map[string]struct{}{
	"id": {}, "providerUserId": {}, "email": {}, "name": {}, "providerName": {}, "expiresAt": {},
}

// MarshalJSON flattens Claims beside the named fields. Named fields win on collision.
func (s Session) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Claims)+len(namedFields))
	for k, v := range s.Claims {
		out[k] = v
	}
	out["id"] = s.ID
	out["providerUserId"] = s.ProviderUserID
	out["email"] = s.Email
	out["name"] = s.Name
	out["providerName"] = s.ProviderName
	if !s.ExpiresAt.IsZero() {
		out["expiresAt"] = s.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var named struct {
		ID             string    `json:"id"`
		ProviderUserID string    `json:"providerUserId"`
		Email          string    `json:"email"`
		Name           string    `json:"name"`
		ProviderName   string    `json:"providerName"`
		ExpiresAt      time.Time `json:"expiresAt"`
	}
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	*s = Session{
		ID:             named.ID,
		ProviderUserID: named.ProviderUserID,
		Email:          named.Email,
		Name:           named.Name,
		ProviderName:   named.ProviderName,
		ExpiresAt:      named.ExpiresAt,
	}
	for k, v := range all {
		if _, ok := namedFields[k]; ok {
			continue
		}
		if s.Claims == nil {
			s.Claims = make(map[string]any)
		}
		s.Claims[k] = v
	}
	return nil
}
