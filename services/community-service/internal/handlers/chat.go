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

type ChatHandler struct {
	repo   *storage.ChatRepository
	logger *slog.Logger
}

func NewChatHandler(repo *storage.ChatRepository, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{repo: repo, logger: logger}
}

type roomItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

type messageItem struct {
	ID         string `json:"id"`
	SenderName string `json:"senderName,omitempty"`
	Body       string `json:"body"`
	CreatedAt  string `json:"createdAt"`
}

func (h *ChatHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	userID, _, role := requester(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if role != "admin" {
		writeError(w, http.StatusForbidden, "only admins may create rooms")
		return
	}

	var req struct {
		Name     string `json:"name"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	if req.Language != "ko" && req.Language != "es" {
		writeError(w, http.StatusBadRequest, "language must be ko or es")
		return
	}

	id, err := h.repo.CreateRoom(r.Context(), req.Name, req.Language)
	if err != nil {
		h.logger.Error("create room failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *ChatHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.repo.ListRooms(r.Context())
	if err != nil {
		h.logger.Error("list rooms failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	items := make([]roomItem, 0, len(rooms))
	for _, room := range rooms {
		items = append(items, roomItem{ID: room.ID, Name: room.Name, Language: room.Language})
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": items})
}

func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID, userName, _ := requester(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	roomID := r.PathValue("roomID")

	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Body) == "" {
		writeError(w, http.StatusBadRequest, "body required")
		return
	}

	id, err := h.repo.CreateMessage(r.Context(), &storage.ChatMessage{
		RoomID:     roomID,
		SenderID:   userID,
		SenderName: userName,
		Body:       strings.TrimSpace(req.Body),
	})
	if err != nil {
		h.logger.Error("post message failed", "roomId", roomID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to post message")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	msgs, err := h.repo.ListMessages(r.Context(), roomID, limit)
	if err != nil {
		h.logger.Error("list messages failed", "roomId", roomID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	items := make([]messageItem, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, messageItem{
			ID:         m.ID,
			SenderName: m.SenderName,
			Body:       m.Body,
			CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": items})
}
