package cli

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/taskkeeper/internal/client/client"
)

const taskUsage = "usage: task add <description> | list [done|open] [sort=field:asc|desc] [limit=n] [skip=n] | done <id> | rm <id>"

// Task dispatches the task subcommands.
func (a *App) Task(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(taskUsage)
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "add":
		if len(rest) == 0 {
			return errors.New(taskUsage)
		}
		return a.addTask(ctx, strings.Join(rest, " "))
	case "list", "ls":
		q, err := parseTaskQuery(rest)
		if err != nil {
			return err
		}
		return a.listTasks(ctx, q)
	case "done":
		if len(rest) != 1 {
			return errors.New(taskUsage)
		}
		return a.completeTask(ctx, rest[0])
	case "rm":
		if len(rest) != 1 {
			return errors.New(taskUsage)
		}
		return a.removeTask(ctx, rest[0])
	default:
		return errors.New(taskUsage)
	}
}

func parseTaskQuery(args []string) (client.TaskQuery, error) {
	var q client.TaskQuery
	for _, arg := range args {
		switch arg {
		case "done":
			v := true
			q.Completed = &v
			continue
		case "open":
			v := false
			q.Completed = &v
			continue
		}

		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return q, errors.New(taskUsage)
		}
		switch key {
		case "sort":
			q.SortBy = value
		case "limit", "skip":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return q, errors.New(key + " must be a non-negative integer")
			}
			if key == "limit" {
				q.Limit = n
			} else {
				q.Skip = n
			}
		default:
			return q, errors.New(taskUsage)
		}
	}
	return q, nil
}

func (a *App) addTask(ctx context.Context, description string) error {
	return a.withToken(ctx, func(token string) error {
		t, err := a.api.CreateTask(ctx, token, description)
		if err != nil {
			return err
		}
		a.printf("Added task %s\n", t.ID)
		return nil
	})
}

func (a *App) listTasks(ctx context.Context, q client.TaskQuery) error {
	return a.withToken(ctx, func(token string) error {
		tasks, err := a.api.ListTasks(ctx, token, q)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			a.println("No tasks")
			return nil
		}
		for _, t := range tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			a.printf("[%s] %s  %s\n", mark, t.ID, t.Description)
		}
		return nil
	})
}

func (a *App) completeTask(ctx context.Context, id string) error {
	return a.withToken(ctx, func(token string) error {
		if _, err := a.api.UpdateTask(ctx, token, id, map[string]any{"completed": true}); err != nil {
			return err
		}
		a.println("Task completed")
		return nil
	})
}

func (a *App) removeTask(ctx context.Context, id string) error {
	return a.withToken(ctx, func(token string) error {
		if _, err := a.api.DeleteTask(ctx, token, id); err != nil {
			return err
		}
		a.println("Task removed")
		return nil
	})
}
