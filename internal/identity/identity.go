// Package identity supplies the authenticated principal that owns all
// household data, and the login/register/logout operations around it.
package identity

import "context"

// Identity is the authenticated principal.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo,omitempty"`
}

// Provider exposes the current identity and authentication operations.
// Watch emits the new current identity (or nil on logout) after every
// change; error messages from Login and Register are surfaced verbatim to
// the caller.
type Provider interface {
	Current() *Identity
	Watch() <-chan *Identity
	Register(ctx context.Context, name, email, password string) (*Identity, error)
	Login(ctx context.Context, email, password string) (*Identity, error)
	Logout(ctx context.Context) error
}
