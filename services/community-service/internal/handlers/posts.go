package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amiko-app/amiko/services/community-service/internal/storage"
)

type PostHandler struct {
	repo   *storage.PostRepository
	logger *slog.Logger
}

func NewPostHandler(repo *storage.PostRepository, logger *slog.Logger) *PostHandler {
	return &PostHandler{repo: repo, logger: logger}
}

type createPostRequest struct {
	Board    string `json:"board"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Language string `json:"language"`
}

type postItem struct {
	ID           string `json:"id"`
	Board        string `json:"board"`
	Title        string `json:"title"`
	Body         string `json:"body,omitempty"`
	Language     string `json:"language"`
	AuthorName   string `json:"authorName,omitempty"`
	CommentCount int    `json:"commentCount"`
	CreatedAt    string `json:"createdAt"`
}

type commentItem struct {
	ID         string `json:"id"`
	Body       string `json:"body"`
	AuthorName string `json:"authorName,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

func requester(r *http.Request) (userID, userName, role string) {
	return strings.TrimSpace(r.Header.Get("X-User-Id")),
		strings.TrimSpace(r.Header.Get("X-User-Name")),
		strings.TrimSpace(r.Header.Get("X-User-Role"))
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, userName, _ := requester(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if !storage.Boards[req.Board] {
		writeError(w, http.StatusBadRequest, "unknown board")
		return
	}
	if req.Title == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "title and body required")
		return
	}
	if req.Language != "ko" && req.Language != "es" {
		writeError(w, http.StatusBadRequest, "language must be ko or es")
		return
	}

	id, err := h.repo.Create(r.Context(), &storage.Post{
		Board:      req.Board,
		Title:      req.Title,
		Body:       req.Body,
		Language:   req.Language,
		AuthorID:   userID,
		AuthorName: userName,
	})
	if err != nil {
		h.logger.Error("create post failed", "userId", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create post")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	board := r.URL.Query().Get("board")
	if !storage.Boards[board] {
		writeError(w, http.StatusBadRequest, "unknown board")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	posts, err := h.repo.ListByBoard(r.Context(), board, limit, offset)
	if err != nil {
		h.logger.Error("list posts failed", "board", board, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	items := make([]postItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, postItem{
			ID:           p.ID,
			Board:        p.Board,
			Title:        p.Title,
			Language:     p.Language,
			AuthorName:   p.AuthorName,
			CommentCount: p.CommentCount,
			CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": items})
}

func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.repo.Get(r.Context(), r.PathValue("postID"))
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		h.logger.Error("get post failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load post")
		return
	}
	writeJSON(w, http.StatusOK, postItem{
		ID:           post.ID,
		Board:        post.Board,
		Title:        post.Title,
		Body:         post.Body,
		Language:     post.Language,
		AuthorName:   post.AuthorName,
		CommentCount: post.CommentCount,
		CreatedAt:    post.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _, role := requester(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	postID := r.PathValue("postID")

	post, err := h.repo.Get(r.Context(), postID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load post")
		return
	}
	if post.AuthorID != userID && role != "admin" {
		writeError(w, http.StatusForbidden, "only the author or an admin may delete a post")
		return
	}

	if err := h.repo.Delete(r.Context(), postID); err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		h.logger.Error("delete post failed", "postId", postID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to delete post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PostHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, userName, _ := requester(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	postID := r.PathValue("postID")

	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Body) == "" {
		writeError(w, http.StatusBadRequest, "body required")
		return
	}

	if _, err := h.repo.Get(r.Context(), postID); err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load post")
		return
	}

	id, err := h.repo.CreateComment(r.Context(), &storage.Comment{
		PostID:     postID,
		Body:       strings.TrimSpace(req.Body),
		AuthorID:   userID,
		AuthorName: userName,
	})
	if err != nil {
		h.logger.Error("create comment failed", "postId", postID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create comment")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *PostHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID := r.PathValue("postID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	comments, err := h.repo.ListComments(r.Context(), postID, limit)
	if err != nil {
		h.logger.Error("list comments failed", "postId", postID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list comments")
		return
	}
	items := make([]commentItem, 0, len(comments))
	for _, c := range comments {
		items = append(items, commentItem{
			ID:         c.ID,
			Body:       c.Body,
			AuthorName: c.AuthorName,
			CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": items})
}
