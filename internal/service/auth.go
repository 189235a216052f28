package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/slotswap/internal/auth"
	"github.com/Shivanand-hulikatti/slotswap/internal/model"
	"github.com/Shivanand-hulikatti/slotswap/internal/repository"
	"github.com/google/uuid"
)

var errBadCredentials = fmt.Errorf("%w: invalid email or password", model.ErrAuthorization)

// AuthService registers users and exchanges credentials for tokens.
type AuthService struct {
	store  repository.Store
	tokens *auth.Tokens
	clock  Clock
	log    *slog.Logger
}

// NewAuthService constructs an AuthService with its dependencies.
func NewAuthService(store repository.Store, tokens *auth.Tokens, clock Clock, log *slog.Logger) *AuthService {
	return &AuthService{store: store, tokens: tokens, clock: clock, log: log}
}

// Register creates an account and returns it with a fresh token. Emails are
// stored lower-cased and must be unique.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.InsertUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", "user_id", user.ID)
	return s.respond(user)
}

// Login verifies credentials. Unknown email and wrong password fail the
// same way.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var user *model.User
	err := s.store.WithinTx(ctx, func(tx repository.Tx) (err error) {
		user, err = tx.UserByEmail(ctx, req.Email)
		return err
	})
	if errors.Is(err, model.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return nil, errBadCredentials
	}
	return s.respond(user)
}

// Me returns the account behind an authenticated user id.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	var user *model.User
	err := s.store.WithinTx(ctx, func(tx repository.Tx) (err error) {
		user, err = tx.UserByID(ctx, userID)
		return err
	})
	return user, err
}

func (s *AuthService) respond(user *model.User) (*model.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &model.AuthResponse{User: user.Summary(), Token: token}, nil
}
