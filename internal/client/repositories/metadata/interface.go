// Package metadata stores the CLI's local key/value state, such as the
// current session token, in SQLite.
package metadata

import (
	"context"
)

// Keys of the session record.
const (
	KeyToken  = "session.token"
	KeyUserID = "session.user_id"
	KeyEmail  = "session.email"
)

// Repository is a small key/value table. Get returns (nil, nil) for a
// missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
}
