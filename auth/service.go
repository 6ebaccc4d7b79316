// Package auth resolves the authenticated identity a checkout runs under.
// Accounts live in Postgres, sessions in Redis so a token survives restarts.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"gofalre.io/storefront/driver"
	"gofalre.io/storefront/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrSessionNotFound    = errors.New("session not found")
)

const sessionTTL = 24 * time.Hour

// IdentityListener receives push-style identity-changed notifications:
// the new identity on sign-in, nil on sign-out.
type IdentityListener func(identity *models.Identity)

type Service interface {
	SignUp(ctx context.Context, email, password, businessName string) (*models.Identity, string, error)
	SignIn(ctx context.Context, email, password string) (*models.Identity, string, error)
	SignOut(ctx context.Context, token string) error
	// IdentityFromToken resolves the current identity, nil error with a valid
	// session only.
	IdentityFromToken(ctx context.Context, token string) (*models.Identity, error)
	OnIdentityChanged(fn IdentityListener) func()
}

var _ Service = (*service)(nil)

type service struct {
	conn     driver.PostgresPool
	sessions *redis.Client
	logger   *zap.Logger

	mu        sync.Mutex
	listeners map[uint64]IdentityListener
	nextID    uint64
}

func NewService(conn driver.PostgresPool, sessions *redis.Client, logger *zap.Logger) Service {
	return &service{
		conn:      conn,
		sessions:  sessions,
		logger:    logger,
		listeners: make(map[uint64]IdentityListener),
	}
}

func (s *service) SignUp(ctx context.Context, email, password, businessName string) (*models.Identity, string, error) {
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		BusinessName: businessName,
		PasswordHash: string(hash),
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO users (id, email, business_name, password_hash)
		VALUES ($1, $2, $3, $4)`,
		user.ID, user.Email, user.BusinessName, user.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, "", ErrEmailTaken
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, "", err
	}

	return s.openSession(ctx, user.Identity())
}

func (s *service) SignIn(ctx context.Context, email, password string) (*models.Identity, string, error) {
	var user models.User
	err := s.conn.QueryRow(ctx, `
		SELECT id, email, business_name, password_hash, created_at
		FROM users
		WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.BusinessName, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		s.logger.Error("Failed to look up user", zap.Error(err))
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	return s.openSession(ctx, user.Identity())
}

func (s *service) SignOut(ctx context.Context, token string) error {
	if err := s.sessions.Del(ctx, sessionKey(token)).Err(); err != nil {
		s.logger.Error("Failed to delete session", zap.Error(err))
		return err
	}

	s.notify(nil)
	return nil
}

func (s *service) IdentityFromToken(ctx context.Context, token string) (*models.Identity, error) {
	raw, err := s.sessions.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		s.logger.Error("Failed to read session", zap.Error(err))
		return nil, err
	}

	var identity models.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	return &identity, nil
}

func (s *service) OnIdentityChanged(fn IdentityListener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *service) openSession(ctx context.Context, identity *models.Identity) (*models.Identity, string, error) {
	raw, err := json.Marshal(identity)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode session: %w", err)
	}

	token := uuid.NewString()
	if err := s.sessions.Set(ctx, sessionKey(token), raw, sessionTTL).Err(); err != nil {
		s.logger.Error("Failed to store session", zap.Error(err))
		return nil, "", err
	}

	s.notify(identity)
	return identity, token, nil
}

func (s *service) notify(identity *models.Identity) {
	s.mu.Lock()
	listeners := make([]IdentityListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(identity)
	}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
