// Package services contains server-side business logic. This file implements
// UserService: signup, login, session token issuing and revocation, request
// authentication, profile maintenance and avatars.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/dbx"
	"github.com/dmitrijs2005/taskkeeper/internal/logging"
	"github.com/dmitrijs2005/taskkeeper/internal/server/auth"
	"github.com/dmitrijs2005/taskkeeper/internal/server/avatars"
	"github.com/dmitrijs2005/taskkeeper/internal/server/config"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/dmitrijs2005/taskkeeper/internal/server/notify"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Identity is the result of a successful authentication: the caller's user
// record and the exact token it presented.
type Identity struct {
	User  *models.User
	Token string
}

type UserService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	avatars        avatars.Store
	notifier       notify.Notifier
	log            logging.Logger
	jwtSecret      []byte
	tokenValidity  time.Duration
	storageTimeout time.Duration
	bcryptCost     int
	maxAvatarBytes int64
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, store avatars.Store,
	notifier notify.Notifier, log logging.Logger, cfg *config.Config) *UserService {
	return &UserService{
		db:             db,
		repomanager:    m,
		avatars:        store,
		notifier:       notifier,
		log:            log.With("module", "users"),
		jwtSecret:      []byte(cfg.SecretKey),
		tokenValidity:  cfg.TokenValidityDuration,
		storageTimeout: cfg.StorageTimeout,
		bcryptCost:     cfg.BcryptCost,
		maxAvatarBytes: cfg.MaxAvatarBytes,
	}
}

// Signup creates the account and its first session token, which occupies
// index 0 of the token list.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, string, error) {
	in.Sanitize()
	if err := in.Validate(); err != nil {
		return nil, "", err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	id := uuid.NewString()
	token, err := auth.GenerateToken(id, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		ID:           id,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	}, token)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, "", fmt.Errorf("email %w", common.ErrorAlreadyExists)
		}
		return nil, "", storageError(err)
	}

	s.notifier.Welcome(ctx, user)
	return user, token, nil
}

// Login checks the credentials and appends a fresh token. An unknown email
// and a wrong password fail the same way.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*models.User, string, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrInvalidCredentials
		}
		return nil, "", storageError(err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if !ok {
		return nil, "", common.ErrInvalidCredentials
	}

	token, err := s.IssueToken(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrInvalidCredentials
		}
		return nil, "", err
	}

	user.Tokens = append(user.Tokens, token)
	return user, token, nil
}

// IssueToken signs a token for userID and appends it to the stored list.
// The token is returned only once it is persisted.
func (s *UserService) IssueToken(ctx context.Context, userID string) (string, error) {
	token, err := auth.GenerateToken(userID, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	if err := s.repomanager.Users(s.db).AppendToken(ctx, userID, token); err != nil {
		return "", storageError(err)
	}
	return token, nil
}

// Authenticate resolves a presented token to its user. The signature is
// checked first, then the user must exist, then the exact token must still
// be in the user's active list.
func (s *UserService) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, common.ErrMissingToken
	}

	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, common.ErrUnknownUser
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnknownUser
		}
		return nil, storageError(err)
	}

	if !slices.Contains(user.Tokens, token) {
		return nil, common.ErrTokenRevoked
	}
	return &Identity{User: user, Token: token}, nil
}

// Logout revokes the session that made the request. Revoking a token that
// is already gone succeeds.
func (s *UserService) Logout(ctx context.Context, id *Identity) error {
	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	err := s.repomanager.Users(s.db).RemoveToken(ctx, id.User.ID, id.Token)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return storageError(err)
	}
	return nil
}

// LogoutAll empties the caller's token list.
func (s *UserService) LogoutAll(ctx context.Context, id *Identity) error {
	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	err := s.repomanager.Users(s.db).ClearTokens(ctx, id.User.ID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return storageError(err)
	}
	return nil
}

func (s *UserService) Profile(_ context.Context, id *Identity) *models.User {
	return id.User
}

// UpdateProfile validates fields against the allow-list and applies them in a
// single statement. Nothing is written when any field is rejected.
func (s *UserService) UpdateProfile(ctx context.Context, id *Identity, fields map[string]json.RawMessage) (*models.User, error) {
	upd, err := ValidateUserUpdate(fields)
	if err != nil {
		return nil, err
	}

	patch := models.UserPatch{Name: upd.Name, Email: upd.Email}
	if upd.Password != nil {
		patch.PasswordHash, err = auth.HashPassword(*upd.Password, s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	user, err := s.repomanager.Users(s.db).Update(ctx, id.User.ID, patch)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			return nil, fmt.Errorf("email %w", common.ErrorAlreadyExists)
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrUnknownUser
		}
		return nil, storageError(err)
	}
	return user, nil
}

// Delete removes the caller's account. Tokens, the inline avatar and tasks go
// with the row; an avatar object in the bucket is removed afterwards.
func (s *UserService) Delete(ctx context.Context, id *Identity) (*models.User, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	user, err := s.repomanager.Users(s.db).Delete(ctx, id.User.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnknownUser
		}
		return nil, storageError(err)
	}

	s.removeAvatarObject(ctx, user.AvatarKey)
	s.notifier.Goodbye(ctx, user)
	return user, nil
}

// SetAvatar normalizes the upload and stores it, replacing any previous one.
func (s *UserService) SetAvatar(ctx context.Context, id *Identity, filename string, data []byte) error {
	img, err := avatars.Normalize(filename, data, s.maxAvatarBytes)
	if err != nil {
		return err
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	inline, key, err := s.avatars.Put(ctx, id.User.ID, img)
	if err != nil {
		return storageError(err)
	}

	if err := s.repomanager.Users(s.db).SetAvatar(ctx, id.User.ID, inline, key); err != nil {
		s.removeAvatarObject(ctx, key)
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUnknownUser
		}
		return storageError(err)
	}

	if old := id.User.AvatarKey; old != key {
		s.removeAvatarObject(ctx, old)
	}
	return nil
}

func (s *UserService) DeleteAvatar(ctx context.Context, id *Identity) error {
	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	if err := s.repomanager.Users(s.db).ClearAvatar(ctx, id.User.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUnknownUser
		}
		return storageError(err)
	}
	s.removeAvatarObject(ctx, id.User.AvatarKey)
	return nil
}

// Avatar returns the PNG avatar of any user, or common.ErrorNotFound.
func (s *UserService) Avatar(ctx context.Context, userID string) ([]byte, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, common.ErrorNotFound
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	inline, key, err := s.repomanager.Users(s.db).GetAvatar(ctx, userID)
	if err != nil {
		return nil, storageError(err)
	}
	data, err := s.avatars.Get(ctx, inline, key)
	if err != nil {
		return nil, storageError(err)
	}
	return data, nil
}

func (s *UserService) removeAvatarObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.avatars.Remove(ctx, key); err != nil {
		s.log.Warn(ctx, "avatar object left behind", "key", key, "error", err)
	}
}

// storageError passes domain errors through and marks everything else as a
// storage failure.
func storageError(err error) error {
	if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorAlreadyExists) ||
		errors.Is(err, common.ErrorStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrorStorage, err)
}
