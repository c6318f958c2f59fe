package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials deliberately does not say whether the email or the
// password was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailTaken is returned by Register for a duplicate email.
var ErrEmailTaken = errors.New("an account with that email already exists")

const watchBuffer = 16

// SQLiteProvider stores accounts in the accounts table and tracks the single
// active identity for this household instance, emitting changes to watchers.
type SQLiteProvider struct {
	db     *sql.DB
	logger *slog.Logger

	mu       sync.Mutex
	current  *Identity
	watchers []chan *Identity
}

func NewSQLiteProvider(db *sql.DB, logger *slog.Logger) *SQLiteProvider {
	return &SQLiteProvider{db: db, logger: logger}
}

// Current returns the active identity, or nil when nobody is signed in.
func (p *SQLiteProvider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	ident := *p.current
	return &ident
}

// Watch returns a channel that receives the new current identity (nil on
// logout) after every change.
func (p *SQLiteProvider) Watch() <-chan *Identity {
	ch := make(chan *Identity, watchBuffer)
	p.mu.Lock()
	p.watchers = append(p.watchers, ch)
	p.mu.Unlock()
	return ch
}

func (p *SQLiteProvider) Register(ctx context.Context, name, email, password string) (*Identity, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, errors.New("name, email, and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.NewString()
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, email, password_hash) VALUES (?, ?, ?, ?)`,
		id, name, email, string(hash),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	ident := &Identity{ID: id, Name: name, Email: email}
	p.setCurrent(ident)
	p.logger.Info("account registered", "email", email)
	return ident, nil
}

func (p *SQLiteProvider) Login(ctx context.Context, email, password string) (*Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var ident Identity
	var hash string
	err := p.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, photo_url FROM accounts WHERE email = ?`, email,
	).Scan(&ident.ID, &ident.Name, &ident.Email, &hash, &ident.Photo)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	p.setCurrent(&ident)
	p.logger.Info("signed in", "email", email)
	return &ident, nil
}

func (p *SQLiteProvider) Logout(ctx context.Context) error {
	p.setCurrent(nil)
	p.logger.Info("signed out")
	return nil
}

func (p *SQLiteProvider) setCurrent(ident *Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = ident
	for _, ch := range p.watchers {
		var next *Identity
		if ident != nil {
			c := *ident
			next = &c
		}
		select {
		case ch <- next:
		default:
			p.logger.Warn("identity watcher lagging, dropping event")
		}
	}
}
