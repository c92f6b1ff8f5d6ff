package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/dbx"
	"github.com/dmitrijs2005/taskkeeper/internal/server/config"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/dmitrijs2005/taskkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// MaxTaskPage caps the number of tasks returned by one List call.
const MaxTaskPage = 100

var taskSortKeys = []string{"createdAt", "updatedAt", "description", "completed"}

// TaskService manages the tasks of authenticated users. Every call is scoped
// to the owner; other users' tasks are reported as not found.
type TaskService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	storageTimeout time.Duration
}

func NewTaskService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *TaskService {
	return &TaskService{
		db:             db,
		repomanager:    m,
		storageTimeout: cfg.StorageTimeout,
	}
}

func (s *TaskService) Create(ctx context.Context, ownerID string, in NewTaskInput) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	task, err := s.repomanager.Tasks(s.db).Create(ctx, &models.Task{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Description: in.Description,
		Completed:   in.Completed,
	})
	if err != nil {
		return nil, storageError(err)
	}
	return task, nil
}

func (s *TaskService) List(ctx context.Context, ownerID string, filter models.TaskFilter) ([]*models.Task, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	tasks, err := s.repomanager.Tasks(s.db).List(ctx, ownerID, filter)
	if err != nil {
		return nil, storageError(err)
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, ownerID, id string) (*models.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	task, err := s.repomanager.Tasks(s.db).Get(ctx, ownerID, id)
	if err != nil {
		return nil, storageError(err)
	}
	return task, nil
}

// Update applies an allow-listed patch. Unknown fields reject the request
// before anything is looked up.
func (s *TaskService) Update(ctx context.Context, ownerID, id string, fields map[string]json.RawMessage) (*models.Task, error) {
	patch, err := ValidateTaskUpdate(fields)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	task, err := s.repomanager.Tasks(s.db).Update(ctx, ownerID, id, *patch)
	if err != nil {
		return nil, storageError(err)
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, ownerID, id string) (*models.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	task, err := s.repomanager.Tasks(s.db).Delete(ctx, ownerID, id)
	if err != nil {
		return nil, storageError(err)
	}
	return task, nil
}

// ParseTaskQuery reads the list filter from query parameters:
// completed=true|false, limit, skip and sortBy=field:asc|desc.
func ParseTaskQuery(q url.Values) (models.TaskFilter, error) {
	var f models.TaskFilter

	if v := q.Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, common.NewValidationError("completed", "must be true or false")
		}
		f.Completed = &b
	}

	var err error
	if f.Limit, err = nonNegative(q, "limit"); err != nil {
		return f, err
	}
	if f.Limit == 0 || f.Limit > MaxTaskPage {
		f.Limit = MaxTaskPage
	}
	if f.Skip, err = nonNegative(q, "skip"); err != nil {
		return f, err
	}

	if v := q.Get("sortBy"); v != "" {
		field, dir, _ := strings.Cut(v, ":")
		if !slices.Contains(taskSortKeys, field) {
			return f, common.NewValidationError("sortBy", "unsupported field")
		}
		switch strings.ToLower(dir) {
		case "", "asc":
		case "desc":
			f.Desc = true
		default:
			return f, common.NewValidationError("sortBy", "direction must be asc or desc")
		}
		f.SortBy = field
	}
	return f, nil
}

func nonNegative(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, common.NewValidationError(key, "must be a non-negative integer")
	}
	return n, nil
}
