package directory

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/thebtf/recordkit/pkg/recordhttp"
)

// DefaultUsersLimit is the default page size for user listings.
const DefaultUsersLimit = 100

// CreateUserRequest is the request body for user creation.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// CheckPasswordRequest is the request body for password verification.
type CheckPasswordRequest struct {
	Password string `json:"password"`
}

// CheckPasswordResponse is the response for password verification.
type CheckPasswordResponse struct {
	Valid bool `json:"valid"`
}

func (s *Service) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		recordhttp.BadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		recordhttp.BadRequest(w, "email and password are required")
		return
	}

	user := &User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: req.Password,
	}
	if err := s.users.Save(r.Context(), user); err != nil {
		recordhttp.RenderError(w, err)
		return
	}

	recordhttp.WriteStatusJSON(w, http.StatusCreated, user)
}

func (s *Service) handleListUsers(w http.ResponseWriter, r *http.Request) {
	opts := recordhttp.ParseListOptions(r, DefaultUsersLimit)

	users, err := s.users.List(r.Context(), opts)
	if err != nil {
		recordhttp.RenderError(w, err)
		return
	}
	total, err := s.users.Count(r.Context(), opts)
	if err != nil {
		recordhttp.RenderError(w, err)
		return
	}

	recordhttp.WriteJSON(w, map[string]any{
		"users": users,
		"total": total,
	})
}

func (s *Service) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		recordhttp.BadRequest(w, "invalid id")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		recordhttp.RenderError(w, err)
		return
	}
	recordhttp.WriteJSON(w, user)
}

func (s *Service) handleGetUserByToken(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		recordhttp.RenderError(w, err)
		return
	}
	recordhttp.WriteJSON(w, user)
}

func (s *Service) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		recordhttp.BadRequest(w, "invalid id")
		return
	}

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		recordhttp.BadRequest(w, "invalid JSON body")
		return
	}
	// Password changes go through Save so they get hashed; a raw column
	// update would persist plaintext.
	delete(fields, "password")

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		recordhttp.RenderError(w, err)
		return
	}
	if err := s.users.Update(r.Context(), user, fields); err != nil {
		recordhttp.RenderError(w, err)
		return
	}
	recordhttp.WriteJSON(w, user)
}

func (s *Service) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		recordhttp.BadRequest(w, "invalid id")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		recordhttp.RenderError(w, err)
		return
	}

	if r.URL.Query().Get("hard") == "true" {
		err = s.users.Purge(r.Context(), user)
	} else {
		err = s.users.Delete(r.Context(), user)
	}
	if err != nil {
		recordhttp.RenderError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleCheckPassword(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		recordhttp.BadRequest(w, "invalid id")
		return
	}

	var req CheckPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		recordhttp.BadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		recordhttp.RenderError(w, err)
		return
	}

	recordhttp.WriteJSON(w, CheckPasswordResponse{
		Valid: s.users.CheckPassword(user, req.Password),
	})
}
