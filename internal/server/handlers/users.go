package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/careloop/server/internal/store"
)

// DefaultUserEmail identifies requests that carry no identity header.
// Single-user deployments never need to set the header at all.
const DefaultUserEmail = "local@careloop"

// UserResolver maps an incoming request to a stored user.
type UserResolver interface {
	Resolve(ctx context.Context, r *http.Request) (*store.User, error)
}

// EmailHeaderResolver resolves users from the X-User-Email header, creating
// the account on first sight. Authentication is expected to happen at a
// proxy in front of this server.
type EmailHeaderResolver struct {
	Store *store.Store
}

func (er *EmailHeaderResolver) Resolve(ctx context.Context, r *http.Request) (*store.User, error) {
	email := strings.TrimSpace(r.Header.Get("X-User-Email"))
	if email == "" {
		email = DefaultUserEmail
	}

	user, err := er.Store.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	name := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		name = email[:at]
	}
	user, err = er.Store.CreateUser(ctx, name, email)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
