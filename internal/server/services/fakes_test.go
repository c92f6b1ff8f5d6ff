package services

import (
	"context"
	"database/sql"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/dbx"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/users"
)

// memUsers is an in-memory users.Repository. Token mutations hold the lock
// like the single-statement SQL versions do.
type memUsers struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	avatar map[string][]byte
	err    error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*models.User{}, avatar: map[string][]byte{}}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Tokens = slices.Clone(u.Tokens)
	c.PasswordHash = slices.Clone(u.PasswordHash)
	return &c
}

func (m *memUsers) Create(_ context.Context, u *models.User, token string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, other := range m.byID {
		if strings.EqualFold(other.Email, u.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.Tokens = []string{token}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = cloneUser(u)
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneUser(u), nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) Update(_ context.Context, id string, p models.UserPatch) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if p.Email != nil {
		for oid, other := range m.byID {
			if oid != id && strings.EqualFold(other.Email, *p.Email) {
				return nil, common.ErrorAlreadyExists
			}
		}
		u.Email = *p.Email
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.PasswordHash != nil {
		u.PasswordHash = p.PasswordHash
	}
	return cloneUser(u), nil
}

func (m *memUsers) Delete(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(m.byID, id)
	delete(m.avatar, id)
	return u, nil
}

func (m *memUsers) AppendToken(_ context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Tokens = append(u.Tokens, token)
	return nil
}

func (m *memUsers) RemoveToken(_ context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Tokens = slices.DeleteFunc(u.Tokens, func(t string) bool { return t == token })
	return nil
}

func (m *memUsers) ClearTokens(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Tokens = []string{}
	return nil
}

func (m *memUsers) SetAvatar(_ context.Context, id string, data []byte, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	m.avatar[id] = data
	u.AvatarKey = key
	u.HasAvatar = len(data) > 0 || key != ""
	return nil
}

func (m *memUsers) ClearAvatar(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	delete(m.avatar, id)
	u.AvatarKey = ""
	u.HasAvatar = false
	return nil
}

func (m *memUsers) GetAvatar(_ context.Context, id string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, "", m.err
	}
	u, ok := m.byID[id]
	if !ok || !u.HasAvatar {
		return nil, "", common.ErrorNotFound
	}
	return m.avatar[id], u.AvatarKey, nil
}

type memTasks struct {
	mu    sync.Mutex
	items map[string]*models.Task
	seq   int
	err   error
}

func newMemTasks() *memTasks {
	return &memTasks{items: map[string]*models.Task{}}
}

func (m *memTasks) Create(_ context.Context, t *models.Task) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.seq++
	t.CreatedAt = time.Unix(int64(m.seq), 0)
	t.UpdatedAt = t.CreatedAt
	c := *t
	m.items[t.ID] = &c
	return t, nil
}

func (m *memTasks) Get(_ context.Context, ownerID, id string) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok || t.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	c := *t
	return &c, nil
}

func (m *memTasks) List(_ context.Context, ownerID string, f models.TaskFilter) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.Task, 0)
	for _, t := range m.items {
		if t.OwnerID != ownerID || (f.Completed != nil && t.Completed != *f.Completed) {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if f.Desc {
		slices.Reverse(out)
	}
	if f.Skip < len(out) {
		out = out[f.Skip:]
	} else {
		out = out[:0]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memTasks) Update(_ context.Context, ownerID, id string, p models.TaskPatch) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok || t.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	c := *t
	return &c, nil
}

func (m *memTasks) Delete(_ context.Context, ownerID, id string) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok || t.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	delete(m.items, id)
	return t, nil
}

type fakeRepoManager struct {
	u *memUsers
	t *memTasks
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newMemUsers(), t: newMemTasks()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository { return m.u }
func (m *fakeRepoManager) Tasks(dbx.DBTX) tasks.Repository { return m.t }

type fakeNotifier struct {
	mu       sync.Mutex
	welcomed []string
	goodbyes []string
}

func (n *fakeNotifier) Welcome(_ context.Context, u *models.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomed = append(n.welcomed, u.Email)
}

func (n *fakeNotifier) Goodbye(_ context.Context, u *models.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.goodbyes = append(n.goodbyes, u.Email)
}

// keyStore mimics an object store: it hands out keys and remembers removals.
type keyStore struct {
	objects map[string][]byte
	removed []string
	seq     int
}

func newKeyStore() *keyStore {
	return &keyStore{objects: map[string][]byte{}}
}

func (s *keyStore) Put(_ context.Context, userID string, png []byte) ([]byte, string, error) {
	s.seq++
	key := userID + "/" + strings.Repeat("k", s.seq)
	s.objects[key] = png
	return nil, key, nil
}

func (s *keyStore) Get(_ context.Context, _ []byte, key string) ([]byte, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return data, nil
}

func (s *keyStore) Remove(_ context.Context, key string) error {
	s.removed = append(s.removed, key)
	delete(s.objects, key)
	return nil
}
