package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/postline/postline/pkg/postline"
)

// maxMultipartMemory bounds how much of a multipart body is buffered in
// memory before spilling to disk.
const maxMultipartMemory = 32 << 20 // 32 MB

// Boundary messages. Internal error text is never forwarded to callers;
// the real error goes to the log.
const (
	msgUnauthorizedParams = "Bad request: Unauthorized query parameters"
	msgInvalidPagination  = "Page and limit must be positive integers"
	msgInvalidTags        = "Tags should be an valid array"
	msgMissingImage       = "Image file is required"
	msgMissingFields      = "Title and description are required"
	msgTooManyImages      = "Too many image files"
	msgInternalError      = "internal server error"
)

// MessageResponse is the error payload shape
type MessageResponse struct {
	Message string `json:"message"`
}

// ListPostsResponse is the response envelope for GET /posts. TotalElements
// counts every post matching the active filters, not the page length.
type ListPostsResponse struct {
	Data          []postline.PostView `json:"data"`
	Page          int                 `json:"page"`
	Limit         int                 `json:"limit"`
	TotalElements int                 `json:"totalElements"`
}

// TagListResponse is the response body for GET /tags
type TagListResponse struct {
	Data []*postline.Tag `json:"data"`
}

// PostHandler handles HTTP requests for posts and tags
type PostHandler struct {
	service postline.Service
}

// NewPostHandler creates a new post handler
func NewPostHandler(service postline.Service) *PostHandler {
	return &PostHandler{service: service}
}

// Routes returns the routes for posts and tags
func (h *PostHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/posts", h.ListPosts)
	r.Post("/post", h.CreatePost)
	r.Get("/post/{id}", h.GetPost)
	r.Get("/tags", h.ListTags)

	return r
}

// ListPosts runs the filtered, sorted, paginated post listing
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	req, err := postline.ParseQueryRequest(r.URL.Query())
	if err != nil {
		switch {
		case errors.Is(err, postline.ErrUnauthorizedQueryParam):
			badRequest(w, r, msgUnauthorizedParams)
		case errors.Is(err, postline.ErrInvalidPagination):
			badRequest(w, r, msgInvalidPagination)
		default:
			badRequest(w, r, msgUnauthorizedParams)
		}
		return
	}

	page, err := h.service.ListPosts(r.Context(), req)
	if err != nil {
		slog.Error("Failed to list posts", "error", err)
		internalError(w, r)
		return
	}

	render.JSON(w, r, ListPostsResponse{
		Data:          page.Items,
		Page:          page.Page,
		Limit:         page.Limit,
		TotalElements: page.TotalElements,
	})
}

// CreatePost accepts a multipart submission: title, desc, a JSON-encoded
// array of tag names under "tags", and one or more files under "image".
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		slog.Error("Failed to parse multipart form", "error", err)
		badRequest(w, r, msgMissingImage)
		return
	}
	defer r.MultipartForm.RemoveAll()

	title := r.FormValue("title")
	desc := r.FormValue("desc")
	if title == "" || desc == "" {
		badRequest(w, r, msgMissingFields)
		return
	}

	var tagNames []string
	if err := json.Unmarshal([]byte(r.FormValue("tags")), &tagNames); err != nil {
		badRequest(w, r, msgInvalidTags)
		return
	}

	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		badRequest(w, r, msgMissingImage)
		return
	}

	req := postline.CreatePostRequest{
		Title: title,
		Desc:  desc,
		Tags:  tagNames,
	}
	for _, fh := range files {
		file, err := fh.Open()
		if err != nil {
			slog.Error("Failed to open uploaded file", "file_name", fh.Filename, "error", err)
			internalError(w, r)
			return
		}
		defer file.Close()

		req.Attachments = append(req.Attachments, postline.Attachment{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        file,
		})
	}

	post, err := h.service.CreatePost(r.Context(), req)
	if err != nil {
		h.renderCreateError(w, r, err)
		return
	}

	slog.Info("Post created", "post_id", post.ID.String(), "media", len(post.Image), "tags", len(post.Tags))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, post)
}

func (h *PostHandler) renderCreateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, postline.ErrMissingMedia):
		badRequest(w, r, msgMissingImage)
	case errors.Is(err, postline.ErrTooManyAttachments):
		badRequest(w, r, msgTooManyImages)
	case errors.Is(err, postline.ErrMissingTitle), errors.Is(err, postline.ErrMissingDescription):
		badRequest(w, r, msgMissingFields)
	default:
		// Tag resolution, upload and persistence failures are internal;
		// nothing was persisted.
		slog.Error("Failed to create post", "error", err)
		internalError(w, r)
	}
}

// GetPost retrieves a single post by ID
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		badRequest(w, r, "Invalid post ID")
		return
	}

	post, err := h.service.GetPost(r.Context(), id)
	if err != nil {
		if errors.Is(err, postline.ErrPostNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, MessageResponse{Message: "Post not found"})
			return
		}
		slog.Error("Failed to get post", "post_id", idStr, "error", err)
		internalError(w, r)
		return
	}

	render.JSON(w, r, post)
}

// ListTags returns all known tags
func (h *PostHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		slog.Error("Failed to list tags", "error", err)
		internalError(w, r)
		return
	}

	if tags == nil {
		tags = []*postline.Tag{}
	}
	render.JSON(w, r, TagListResponse{Data: tags})
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, MessageResponse{Message: message})
}

func internalError(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, MessageResponse{Message: msgInternalError})
}
