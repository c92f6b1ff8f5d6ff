package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/netx"
)

// User reflects API user payloads.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	HasAvatar bool      `json:"hasAvatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Session is returned by signup and login.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

func (c *Client) Signup(ctx context.Context, name, email, password string) (*Session, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	var out Session
	if err := c.do(ctx, http.MethodPost, "/users", body, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var out Session
	if err := c.do(ctx, http.MethodPost, "/users/login", body, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/users/logout", nil, token, nil)
}

func (c *Client) LogoutAll(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/users/logoutAll", nil, token, nil)
}

func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMe sends fields as is; the server rejects keys outside its allow-list.
func (c *Client) UpdateMe(ctx context.Context, token string, fields map[string]any) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPatch, "/users/me", fields, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMe(ctx context.Context, token string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodDelete, "/users/me", nil, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UploadAvatar(ctx context.Context, token, filename string, data []byte) error {
	req, err := netx.NewUploadRequest(ctx, c.baseURL+"/users/me/avatar", "avatar", filename, data)
	if err != nil {
		return err
	}
	return c.send(req, token, nil)
}

func (c *Client) DeleteAvatar(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/users/me/avatar", nil, token, nil)
}

// Avatar downloads the PNG avatar of any user.
func (c *Client) Avatar(ctx context.Context, userID string) ([]byte, error) {
	var out []byte
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/avatar", nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping checks /healthz.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, "", nil)
}
