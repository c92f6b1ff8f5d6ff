package cli

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/taskkeeper/internal/client/client"
	"github.com/dmitrijs2005/taskkeeper/internal/filex"
)

// maxAvatarFile matches the server's upload limit.
const maxAvatarFile = 1 << 20

func (a *App) printUser(u *client.User) {
	a.printf("id:        %s\nname:      %s\nemail:     %s\navatar:    %t\ncreated:   %s\n",
		u.ID, u.Name, u.Email, u.HasAvatar, u.CreatedAt.Local().Format("2006-01-02 15:04"))
}

func (a *App) Me(ctx context.Context) error {
	return a.withToken(ctx, func(token string) error {
		u, err := a.api.Me(ctx, token)
		if err != nil {
			return err
		}
		a.printUser(u)
		return nil
	})
}

// Update sends "update name=Jess email=j@example.com"; a bare "password"
// is asked for without echo.
func (a *App) Update(ctx context.Context, args []string) error {
	values, prompts, err := ParseAssignments(args)
	if err != nil {
		return err
	}
	for _, key := range prompts {
		if key != "password" {
			return errors.New("usage: update key=value... (bare key allowed only for password)")
		}
		pw, err := getPassword(a.out)
		if err != nil {
			return err
		}
		values[key] = pw
	}
	if len(values) == 0 {
		return errors.New("usage: update key=value...")
	}

	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = v
	}

	return a.withToken(ctx, func(token string) error {
		u, err := a.api.UpdateMe(ctx, token, fields)
		if err != nil {
			return err
		}
		a.println("Profile updated")
		a.printUser(u)
		return nil
	})
}

// Avatar uploads the image at the given path, or removes it with "rm".
func (a *App) Avatar(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: avatar <path>|rm")
	}

	if args[0] == "rm" {
		return a.withToken(ctx, func(token string) error {
			if err := a.api.DeleteAvatar(ctx, token); err != nil {
				return err
			}
			a.println("Avatar removed")
			return nil
		})
	}

	data, err := filex.ReadFileLimited(args[0], maxAvatarFile)
	if err != nil {
		return err
	}
	return a.withToken(ctx, func(token string) error {
		if err := a.api.UploadAvatar(ctx, token, filepath.Base(args[0]), data); err != nil {
			return err
		}
		a.println("Avatar uploaded")
		return nil
	})
}

// Delete removes the account after an explicit confirmation.
func (a *App) Delete(ctx context.Context) error {
	answer, err := getSimpleText(a.reader, "Delete your account and all tasks? Type 'yes' to confirm", a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "yes") {
		a.println("Cancelled")
		return nil
	}

	return a.withToken(ctx, func(token string) error {
		u, err := a.api.DeleteMe(ctx, token)
		if err != nil {
			return err
		}
		if err := a.auth.Forget(ctx); err != nil {
			return err
		}
		a.printf("Account %s deleted\n", u.Email)
		return nil
	})
}
