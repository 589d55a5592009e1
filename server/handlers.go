package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/jrsteele09/light-auth/adapter"
	autherrors "github.com/jrsteele09/light-auth/internal/errors"
	"github.com/jrsteele09/light-auth/sessions"
	"github.com/jrsteele09/light-auth/users"
)

const maxBodyBytes = 1 << 20

const (
	resetRequestedMessage = "If the email is registered, a password reset link has been sent"
	resetConfirmedMessage = "Password has been reset"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type credentialsRequest struct {
	Provider  string         `json:"provider"`
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	Data      map[string]any `json:"data,omitempty"`
	AutoLogin bool           `json:"autoLogin,omitempty"`
}

type resetRequest struct {
	Provider string `json:"provider"`
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

type registeredUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type registerResponse struct {
	User    registeredUser    `json:"user"`
	Session *sessions.Session `json:"session,omitempty"`
}

func (d *Dispatcher) csrfToken(_ context.Context, r adapter.Router, _ string) error {
	token, cookie, err := d.auth.CSRF().Issue()
	if err != nil {
		return fmt.Errorf("[csrf] %w: %w", autherrors.ErrInternal, err)
	}
	r.SetCookies(cookie)
	r.ReturnJSON(http.StatusOK, token)
	return nil
}

// session answers null when there is no session.
func (d *Dispatcher) session(ctx context.Context, r adapter.Router, _ string) error {
	session, err := d.auth.GetSession(ctx, r)
	if err != nil {
		return err
	}
	r.ReturnJSON(http.StatusOK, session)
	return nil
}

func (d *Dispatcher) setSession(ctx context.Context, r adapter.Router, _ string) error {
	var session sessions.Session
	if err := decodeJSON(r, &session); err != nil {
		return err
	}
	if err := d.auth.SetSession(ctx, r, &session); err != nil {
		return err
	}
	r.ReturnJSON(http.StatusOK, &session)
	return nil
}

// user never returns provider tokens to the client.
func (d *Dispatcher) user(ctx context.Context, r adapter.Router, id string) error {
	user, err := d.auth.GetUser(ctx, r, id)
	if err != nil {
		return err
	}
	r.ReturnJSON(http.StatusOK, user.Public())
	return nil
}

func (d *Dispatcher) setUser(ctx context.Context, r adapter.Router, _ string) error {
	var user users.User
	if err := decodeJSON(r, &user); err != nil {
		return err
	}
	if err := d.auth.SetUser(ctx, r, &user); err != nil {
		return err
	}
	r.ReturnJSON(http.StatusOK, messageResponse{Message: "User saved"})
	return nil
}

func (d *Dispatcher) login(ctx context.Context, r adapter.Router, provider string) error {
	return d.auth.BeginLogin(ctx, r, provider, r.URL().Query().Get(QueryCallbackURL))
}

func (d *Dispatcher) callback(ctx context.Context, r adapter.Router, provider string) error {
	return d.auth.HandleCallback(ctx, r, provider)
}

func (d *Dispatcher) logout(ctx context.Context, r adapter.Router, _ string) error {
	query := r.URL().Query()
	revoke, _ := strconv.ParseBool(query.Get(QueryRevokeToken))
	return d.auth.Logout(ctx, r, revoke, query.Get(QueryCallbackURL))
}

func (d *Dispatcher) credentialsLogin(ctx context.Context, r adapter.Router, _ string) error {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return fmt.Errorf("%w: email and password are required", autherrors.ErrValidation)
	}
	session, err := d.auth.CredentialsLogin(ctx, r, req.Provider, req.Email, req.Password)
	if err != nil {
		return err
	}
	r.ReturnJSON(http.StatusOK, session)
	return nil
}

func (d *Dispatcher) register(ctx context.Context, r adapter.Router, _ string) error {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return fmt.Errorf("%w: email and password are required", autherrors.ErrValidation)
	}
	claims, session, err := d.auth.Register(ctx, r, req.Provider, req.Email, req.Password, req.Data, req.AutoLogin)
	if err != nil {
		return err
	}
	r.ReturnJSON(http.StatusCreated, registerResponse{
		User:    registeredUser{ID: claims.Subject, Email: claims.Email, Name: claims.Name},
		Session: session,
	})
	return nil
}

// resetRequest answers the same way whether or not the email exists.
func (d *Dispatcher) resetRequest(ctx context.Context, r adapter.Router, _ string) error {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Email) == "" {
		return fmt.Errorf("%w: email is required", autherrors.ErrValidation)
	}
	if err := d.auth.RequestPasswordReset(ctx, req.Provider, req.Email); err != nil {
		return err
	}
	r.ReturnJSON(http.StatusOK, messageResponse{Message: resetRequestedMessage})
	return nil
}

func (d *Dispatcher) resetConfirm(ctx context.Context, r adapter.Router, _ string) error {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := d.auth.ConfirmPasswordReset(ctx, req.Provider, req.Token, req.Password); err != nil {
		return err
	}
	r.ReturnJSON(http.StatusOK, messageResponse{Message: resetConfirmedMessage})
	return nil
}

func decodeJSON(r adapter.Router, v any) error {
	body := r.Request().Body
	if body == nil {
		return fmt.Errorf("%w: request body is required", autherrors.ErrValidation)
	}
	if err := json.NewDecoder(io.LimitReader(body, maxBodyBytes)).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", autherrors.ErrValidation)
		}
		return fmt.Errorf("%w: invalid JSON body", autherrors.ErrValidation)
	}
	return nil
}
