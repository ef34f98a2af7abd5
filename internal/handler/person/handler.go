package person

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/people/backend/internal/model/person"
	"github.com/zhouzirui/people/backend/internal/service/people"
	"github.com/zhouzirui/people/backend/pkg/utils"
)

// Service is what the handler needs from the people service.
type Service interface {
	Create(ctx context.Context, name string) (person.Person, error)
	List(ctx context.Context) ([]person.Person, error)
	Get(ctx context.Context, id int64) (person.Person, error)
	Subscribe(ctx context.Context) <-chan people.Event
}

// Handler people资源的HTTP处理器
type Handler struct {
	svc          Service
	ws           *WebSocketHandler
	pingInterval time.Duration
}

// New 创建people处理器
func New(svc Service) *Handler {
	return &Handler{
		svc:          svc,
		ws:           NewWebSocketHandler(svc),
		pingInterval: 15 * time.Second,
	}
}

// RegisterRoutes 注册people相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/people", func(r chi.Router) {
		r.Get("/", h.handleListPeople)
		r.Post("/", h.handleCreatePerson)
		r.Get("/events", h.handleEvents)
		r.Get("/ws", h.ws.handleWebSocket)
		r.Get("/{id}", h.handleGetPerson)
	})
}

// handleListPeople 列出所有人员
func (h *Handler) handleListPeople(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		log.Printf("[people] list failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to list people")
		return
	}
	utils.RespondJSON(w, http.StatusOK, items)
}

// handleGetPerson 按ID查询
func (h *Handler) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, person.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.Printf("[people] get id=%d failed: %v", id, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to load person")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

// handleCreatePerson 创建人员，客户端提交的id会被忽略
func (h *Handler) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.svc.Create(r.Context(), payload.Name)
	if err != nil {
		log.Printf("[people] create failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to create person")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/people/%d", p.ID))
	utils.RespondJSON(w, http.StatusCreated, p)
}

// handleEvents 通过SSE推送新建人员事件
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	events := h.svc.Subscribe(ctx)

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := utils.SendSSEComment(w, flusher, "connected"); err != nil {
		return
	}

	log.Printf("[sse] opening people stream")
	defer log.Printf("[sse] closing people stream")

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, evt.ID, evt.Type, evt); err != nil {
				log.Printf("[sse] write failed: %v", err)
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "ping"); err != nil {
				return
			}
		}
	}
}
