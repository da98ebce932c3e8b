package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studyhub-ai/assistant-api/internal/docstore"
	"github.com/studyhub-ai/assistant-api/internal/model"
	"github.com/studyhub-ai/assistant-api/pkg/logger"
)

// CollectionsHandler handles the study-planner document collections.
type CollectionsHandler struct {
	docs   *docstore.Store
	logger *logger.Logger
}

// NewCollectionsHandler creates a new collections handler.
func NewCollectionsHandler(docs *docstore.Store, log *logger.Logger) *CollectionsHandler {
	return &CollectionsHandler{
		docs:   docs,
		logger: log,
	}
}

// ListTodos handles GET /todos
func (h *CollectionsHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, docstore.CollectionTodos)
}

// CreateTodoList handles POST /todos
func (h *CollectionsHandler) CreateTodoList(w http.ResponseWriter, r *http.Request) {
	if h.docs == nil {
		writeError(w, http.StatusServiceUnavailable, "document store not configured")
		return
	}

	var req model.CreateTodoListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Tasks == nil {
		req.Tasks = []model.TodoTask{}
	}

	id := uuid.New().String()
	if err := h.docs.Put(r.Context(), docstore.CollectionTodos, id, req); err != nil {
		h.logger.Error("failed to store todo list", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store todo list")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id": id,
	})
}

// ListEvents handles GET /events
func (h *CollectionsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, docstore.CollectionEvents)
}

// ListAssignments handles GET /assignments
func (h *CollectionsHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, docstore.CollectionAssignments)
}

// ListExams handles GET /exams
func (h *CollectionsHandler) ListExams(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, docstore.CollectionExams)
}

func (h *CollectionsHandler) list(w http.ResponseWriter, r *http.Request, collection string) {
	if h.docs == nil {
		writeError(w, http.StatusServiceUnavailable, "document store not configured")
		return
	}

	docs, err := h.docs.List(r.Context(), collection)
	if err != nil {
		h.logger.Error("failed to list collection",
			zap.String("collection", collection),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to list "+collection)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		collection: docs,
	})
}
