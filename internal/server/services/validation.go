package services

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// MinPasswordLength is the shortest password accepted on signup or update.
const MinPasswordLength = 7

var (
	userUpdateFields = []string{"name", "email", "password"}
	taskUpdateFields = []string{"description", "completed"}
)

// SignupInput is the closed request shape for account creation.
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Sanitize trims the name and normalizes the email.
func (in *SignupInput) Sanitize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
}

func (in SignupInput) Validate() error {
	return toValidationError(validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, passwordRules()...),
	))
}

// LoginInput is the closed request shape for login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserUpdate is a sanitized profile update. Nil fields are not changed.
type UserUpdate struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (u UserUpdate) Validate() error {
	return toValidationError(validation.ValidateStruct(&u,
		validation.Field(&u.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&u.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&u.Password, append([]validation.Rule{validation.NilOrNotEmpty}, passwordRules()[1:]...)...),
	))
}

// ValidateUserUpdate checks a profile update against the allow-list and the
// per-field rules. Any unknown key rejects the whole update.
func ValidateUserUpdate(fields map[string]json.RawMessage) (*UserUpdate, error) {
	if err := checkAllowed(fields, userUpdateFields); err != nil {
		return nil, err
	}

	u := &UserUpdate{}
	targets := map[string]**string{"name": &u.Name, "email": &u.Email, "password": &u.Password}
	for key, raw := range fields {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, common.NewValidationError(key, "must be a string")
		}
		*targets[key] = &s
	}

	if u.Name != nil {
		*u.Name = strings.TrimSpace(*u.Name)
	}
	if u.Email != nil {
		*u.Email = normalizeEmail(*u.Email)
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// NewTaskInput is the closed request shape for task creation.
type NewTaskInput struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

func (in *NewTaskInput) Validate() error {
	in.Description = strings.TrimSpace(in.Description)
	return toValidationError(validation.ValidateStruct(in,
		validation.Field(&in.Description, validation.Required, validation.Length(1, 1000)),
	))
}

// ValidateTaskUpdate checks a task update against its allow-list.
func ValidateTaskUpdate(fields map[string]json.RawMessage) (*models.TaskPatch, error) {
	if err := checkAllowed(fields, taskUpdateFields); err != nil {
		return nil, err
	}

	p := &models.TaskPatch{}
	if raw, ok := fields["description"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, common.NewValidationError("description", "must be a string")
		}
		s = strings.TrimSpace(s)
		if err := validation.Validate(s, validation.Required, validation.Length(1, 1000)); err != nil {
			return nil, common.NewValidationError("description", err.Error())
		}
		p.Description = &s
	}
	if raw, ok := fields["completed"]; ok {
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, common.NewValidationError("completed", "must be a boolean")
		}
		p.Completed = &b
	}
	return p, nil
}

func checkAllowed(fields map[string]json.RawMessage, allowed []string) error {
	if len(fields) == 0 {
		return common.NewValidationError("body", "no fields to update")
	}
	for key := range fields {
		if !slices.Contains(allowed, key) {
			return common.ErrUnsupportedField(key)
		}
	}
	return nil
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(MinPasswordLength, 200),
		validation.By(func(value interface{}) error {
			s, _ := value.(string)
			if p, ok := value.(*string); ok && p != nil {
				s = *p
			}
			if strings.Contains(strings.ToLower(s), "password") {
				return errors.New("must not contain \"password\"")
			}
			return nil
		}),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// toValidationError converts ozzo field errors into common.ValidationError.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		ve := &common.ValidationError{Fields: make(map[string]string, len(errs))}
		for field, fe := range errs {
			ve.Fields[field] = fe.Error()
		}
		return ve
	}
	return err
}
