package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Task reflects API task payloads.
type Task struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TaskQuery selects a page of tasks. Zero values are omitted.
type TaskQuery struct {
	Completed *bool
	SortBy    string
	Limit     int
	Skip      int
}

func (q TaskQuery) encode() string {
	v := url.Values{}
	if q.Completed != nil {
		v.Set("completed", strconv.FormatBool(*q.Completed))
	}
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Skip > 0 {
		v.Set("skip", strconv.Itoa(q.Skip))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) CreateTask(ctx context.Context, token, description string) (*Task, error) {
	var out Task
	if err := c.do(ctx, http.MethodPost, "/tasks", map[string]string{"description": description}, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTasks(ctx context.Context, token string, q TaskQuery) ([]Task, error) {
	var out []Task
	if err := c.do(ctx, http.MethodGet, "/tasks"+q.encode(), nil, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateTask(ctx context.Context, token, id string, fields map[string]any) (*Task, error) {
	var out Task
	if err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), fields, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, token, id string) (*Task, error) {
	var out Task
	if err := c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
