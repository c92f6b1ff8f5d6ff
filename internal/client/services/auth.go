// Package services holds the CLI's application services. The auth service
// keeps the current session token in the local metadata table so a session
// survives CLI restarts.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskkeeper/internal/client/client"
	"github.com/dmitrijs2005/taskkeeper/internal/client/repositories/metadata"
)

// API is the part of client.Client the services use.
type API interface {
	Signup(ctx context.Context, name, email, password string) (*client.Session, error)
	Login(ctx context.Context, email, password string) (*client.Session, error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (*client.User, error)
	UpdateMe(ctx context.Context, token string, fields map[string]any) (*client.User, error)
	DeleteMe(ctx context.Context, token string) (*client.User, error)
	UploadAvatar(ctx context.Context, token, filename string, data []byte) error
	DeleteAvatar(ctx context.Context, token string) error
	CreateTask(ctx context.Context, token, description string) (*client.Task, error)
	ListTasks(ctx context.Context, token string, q client.TaskQuery) ([]client.Task, error)
	UpdateTask(ctx context.Context, token, id string, fields map[string]any) (*client.Task, error)
	DeleteTask(ctx context.Context, token, id string) (*client.Task, error)
	Ping(ctx context.Context) error
}

// AuthService manages the persisted session.
type AuthService struct {
	api  API
	meta metadata.Repository
}

func NewAuthService(api API, meta metadata.Repository) *AuthService {
	return &AuthService{api: api, meta: meta}
}

func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*client.User, error) {
	session, err := s.api.Signup(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return &session.User, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*client.User, error) {
	session, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return &session.User, nil
}

// Logout revokes the current token and forgets it. A token the server
// already rejects is forgotten all the same.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.endSession(ctx, s.api.Logout)
}

// LogoutAll revokes every token of the account.
func (s *AuthService) LogoutAll(ctx context.Context) error {
	return s.endSession(ctx, s.api.LogoutAll)
}

// Token returns the stored token or client.ErrNotLoggedIn.
func (s *AuthService) Token(ctx context.Context) (string, error) {
	token, err := s.meta.Get(ctx, metadata.KeyToken)
	if err != nil {
		return "", err
	}
	if len(token) == 0 {
		return "", client.ErrNotLoggedIn
	}
	return string(token), nil
}

// Email returns the email of the stored session, or "".
func (s *AuthService) Email(ctx context.Context) string {
	email, err := s.meta.Get(ctx, metadata.KeyEmail)
	if err != nil {
		return ""
	}
	return string(email)
}

// Forget drops the stored session without contacting the server.
func (s *AuthService) Forget(ctx context.Context) error {
	return s.meta.Delete(ctx, metadata.KeyToken, metadata.KeyUserID, metadata.KeyEmail)
}

func (s *AuthService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx)
}

func (s *AuthService) endSession(ctx context.Context, revoke func(context.Context, string) error) error {
	token, err := s.Token(ctx)
	if err != nil {
		return err
	}
	if err := revoke(ctx, token); err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	return s.Forget(ctx)
}

func (s *AuthService) save(ctx context.Context, session *client.Session) error {
	err := s.meta.SetMany(ctx, map[string][]byte{
		metadata.KeyToken:  []byte(session.Token),
		metadata.KeyUserID: []byte(session.User.ID),
		metadata.KeyEmail:  []byte(session.User.Email),
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
