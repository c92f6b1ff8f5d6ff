package httpx

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/server/avatars"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/dmitrijs2005/taskkeeper/internal/server/services"
	"github.com/gorilla/mux"
)

const avatarFormField = "avatar"

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	HasAvatar bool      `json:"hasAvatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type sessionResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		HasAvatar: u.HasAvatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	var in services.SignupInput
	if err := decodeJSON(w, req, &in); err != nil {
		r.writeServiceError(w, req, err)
		return
	}

	user, token, err := r.users.Signup(req.Context(), in)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{User: toUserResponse(user), Token: token})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(w, req, &in); err != nil {
		r.writeServiceError(w, req, err)
		return
	}

	user, token, err := r.users.Login(req.Context(), in)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: toUserResponse(user), Token: token})
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	id, _ := identityFromContext(req.Context())
	if err := r.users.Logout(req.Context(), id); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (r *Router) handleLogoutAll(w http.ResponseWriter, req *http.Request) {
	id, _ := identityFromContext(req.Context())
	if err := r.users.LogoutAll(req.Context(), id); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out of all sessions"})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	id, _ := identityFromContext(req.Context())
	writeJSON(w, http.StatusOK, toUserResponse(r.users.Profile(req.Context(), id)))
}

func (r *Router) handleUpdateMe(w http.ResponseWriter, req *http.Request) {
	id, _ := identityFromContext(req.Context())
	fields, err := decodeFields(w, req)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}

	user, err := r.users.UpdateProfile(req.Context(), id, fields)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (r *Router) handleDeleteMe(w http.ResponseWriter, req *http.Request) {
	id, _ := identityFromContext(req.Context())
	user, err := r.users.Delete(req.Context(), id)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// handleUploadAvatar reads the "avatar" multipart field. The body is capped a
// little above the configured size so multipart framing still fits.
func (r *Router) handleUploadAvatar(w http.ResponseWriter, req *http.Request) {
	id, _ := identityFromContext(req.Context())

	limit := r.opts.MaxAvatarBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	req.Body = http.MaxBytesReader(w, req.Body, limit+64<<10)

	file, header, err := req.FormFile(avatarFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		r.writeServiceError(w, req, common.NewValidationError(avatarFormField, avatars.ErrUnsupportedImage.Error()))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		r.writeServiceError(w, req, common.NewValidationError(avatarFormField, "unable to read upload"))
		return
	}

	if err := r.users.SetAvatar(req.Context(), id, header.Filename, data); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "avatar uploaded"})
}

func (r *Router) handleDeleteAvatar(w http.ResponseWriter, req *http.Request) {
	id, _ := identityFromContext(req.Context())
	if err := r.users.DeleteAvatar(req.Context(), id); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "avatar removed"})
}

func (r *Router) handleGetAvatar(w http.ResponseWriter, req *http.Request) {
	data, err := r.users.Avatar(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.Header().Set("Content-Type", avatars.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
