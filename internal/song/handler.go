package song

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harmonia/service/internal/middleware"
	"github.com/harmonia/service/internal/response"
)

// Handler holds HTTP handlers for catalog endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new song Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type listResponse struct {
	Songs []*Song `json:"songs"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
}

type songResponse struct {
	Song *Song `json:"song"`
}

type uploadResponse struct {
	Message string `json:"message" example:"Song uploaded successfully"`
	Song    *Song  `json:"song"`
}

type messageResponse struct {
	Message string `json:"message" example:"Song deleted successfully"`
}

// List godoc
//
//	@Summary		List or search songs
//	@Description	Returns the catalog newest first, annotated with uploader names. With ?search, matches the term case-insensitively against title, artist, or album.
//	@Tags			music
//	@Produce		json
//	@Param			page	query		int		false	"Page number (default 1)"
//	@Param			limit	query		int		false	"Page size (default 20, max 50)"
//	@Param			search	query		string	false	"Substring to match"
//	@Success		200		{object}	listResponse
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/music [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pagination(r)

	var (
		songs []*Song
		err   error
	)
	if term := r.URL.Query().Get("search"); term != "" {
		songs, err = h.svc.Search(r.Context(), term, limit, offset)
	} else {
		songs, err = h.svc.List(r.Context(), limit, offset)
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, listResponse{Songs: songs, Page: page, Limit: limit})
}

// Get godoc
//
//	@Summary		Fetch one song
//	@Tags			music
//	@Produce		json
//	@Param			id	path		string	true	"Song ID"
//	@Success		200	{object}	songResponse
//	@Failure		404	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/music/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		response.NotFound(w, "song not found")
		return
	}

	s, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "song not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, songResponse{Song: s})
}

// Upload godoc
//
//	@Summary		Upload a song
//	@Description	Accepts a multipart form with the audio payload and its metadata. The blob is stored before the catalog row is written.
//	@Tags			music
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			title		formData	string	true	"Song title"
//	@Param			artist		formData	string	true	"Artist name"
//	@Param			album		formData	string	false	"Album name"
//	@Param			duration	formData	int		false	"Duration in seconds"
//	@Param			audio		formData	file	true	"Audio file (max 50 MiB)"
//	@Success		201			{object}	uploadResponse
//	@Failure		400			{object}	ValidationError
//	@Failure		401			{object}	response.ErrorBody
//	@Failure		500			{object}	response.ErrorBody
//	@Router			/music/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	// Slack above the ceiling so the form fields and multipart framing
	// do not trip the reader before validation can name the field.
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	in := UploadInput{
		Title:    r.FormValue("title"),
		Artist:   r.FormValue("artist"),
		Album:    r.FormValue("album"),
		Duration: r.FormValue("duration"),
	}

	file, header, err := r.FormFile("audio")
	if err == nil {
		defer file.Close()
		in.Filename = header.Filename
		in.ContentType = header.Header.Get("Content-Type")
		in.Size = header.Size
	}

	s, err := h.svc.Upload(r.Context(), userID, in, file)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			response.JSON(w, http.StatusBadRequest, verr)
			return
		}
		response.InternalError(w)
		return
	}

	response.Created(w, uploadResponse{Message: "Song uploaded successfully", Song: s})
}

// ListByUser godoc
//
//	@Summary		List a user's songs
//	@Tags			music
//	@Produce		json
//	@Param			userId	path		string	true	"User ID"
//	@Param			page	query		int		false	"Page number (default 1)"
//	@Param			limit	query		int		false	"Page size (default 20, max 50)"
//	@Success		200		{object}	listResponse
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/music/user/{userId} [get]
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if _, err := uuid.Parse(userID); err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	page, limit, offset := pagination(r)

	songs, err := h.svc.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, listResponse{Songs: songs, Page: page, Limit: limit})
}

// Delete godoc
//
//	@Summary		Delete own song
//	@Description	Removes the song only when the caller owns it. "Not found" and "not owned" are deliberately not distinguished.
//	@Tags			music
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Song ID"
//	@Success		200	{object}	messageResponse
//	@Failure		401	{object}	response.ErrorBody
//	@Failure		404	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/music/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		response.NotFound(w, "Song not found or unauthorized")
		return
	}

	if err := h.svc.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Song not found or unauthorized")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, messageResponse{Message: "Song deleted successfully"})
}

// pagination reads page/limit query params with the catalog defaults and
// converts them to a (limit, offset) pair.
func pagination(r *http.Request) (page, limit, offset int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(q.Get("limit"))
	limit = clampLimit(limit)
	return page, limit, (page - 1) * limit
}
