package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/harmonia/service/internal/middleware"
	"github.com/harmonia/service/internal/response"
)

// Handler holds HTTP handlers for user profile endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new user Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type updateProfileRequest struct {
	Username string `json:"username" example:"alice"`
	Email    string `json:"email"    example:"alice@example.com"`
}

type profileResponse struct {
	User *User `json:"user"`
}

// GetProfile godoc
//
//	@Summary		Get own profile
//	@Description	Returns the profile of the currently authenticated user.
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	profileResponse
//	@Failure		401	{object}	response.ErrorBody
//	@Failure		404	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/users/profile [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	u, err := h.svc.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, profileResponse{User: u})
}

// UpdateProfile godoc
//
//	@Summary		Update own profile
//	@Description	Changes the username and email of the currently authenticated user.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		updateProfileRequest	true	"New profile fields"
//	@Success		200		{object}	profileResponse
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		401		{object}	response.ErrorBody
//	@Failure		409		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/users/profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" {
		response.BadRequest(w, "username and email are required")
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), userID, req.Username, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "user not found")
		case errors.Is(err, ErrAlreadyExists):
			response.Conflict(w, "username or email already taken")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, profileResponse{User: u})
}
