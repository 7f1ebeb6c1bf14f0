package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/samvad-hq/catalog-relay/internal/domain"
	"github.com/samvad-hq/catalog-relay/internal/logger"
	"github.com/samvad-hq/catalog-relay/pkg/httpclient"
	"github.com/samvad-hq/catalog-relay/pkg/itemjson"
	"github.com/samvad-hq/catalog-relay/pkg/uri"
)

// Dispatcher is the catalog call surface the boundary forwards to.
type Dispatcher interface {
	FetchOne(ctx context.Context, query string) (domain.Item, error)
	FetchList(ctx context.Context) ([]domain.Item, error)
	Submit(ctx context.Context, query string) (domain.Item, error)
	Exchange(ctx context.Context, token string) ([]domain.Item, error)
}

// Handler exposes the dispatcher operations under /api/client.
type Handler struct {
	dispatcher Dispatcher
	log        logger.Logger
}

// NewHandler builds the boundary handler.
func NewHandler(d Dispatcher, log logger.Logger) *Handler {
	return &Handler{dispatcher: d, log: logger.Ensure(log)}
}

// NewRouter returns the service router with middleware and all routes mounted.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api/client", h.RegisterHTTP)
	return r
}

// RegisterHTTP mounts the client routes on r.
func (h *Handler) RegisterHTTP(r chi.Router) {
	r.Get("/get-call-obj", h.handleGetCallObj)
	r.Get("/get-call-list", h.handleGetCallList)
	r.Get("/post-call", h.handlePostCall)
	r.Get("/exchange-call", h.handleExchangeCall)
}

// GET /api/client/get-call-obj?query=Mac
func (h *Handler) handleGetCallObj(w http.ResponseWriter, r *http.Request) {
	item, err := h.dispatcher.FetchOne(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// GET /api/client/get-call-list
func (h *Handler) handleGetCallList(w http.ResponseWriter, r *http.Request) {
	items, err := h.dispatcher.FetchList(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

// GET /api/client/post-call?query=Mac, forwarded downstream as a POST.
func (h *Handler) handlePostCall(w http.ResponseWriter, r *http.Request) {
	item, err := h.dispatcher.Submit(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// GET /api/client/exchange-call with the token in the Authorization header.
func (h *Handler) handleExchangeCall(w http.ResponseWriter, r *http.Request) {
	values, ok := r.Header["Authorization"]
	if !ok || len(values) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing Authorization header"})
		return
	}

	items, err := h.dispatcher.Exchange(r.Context(), values[0])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps a dispatcher failure onto a status without exposing upstream detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	h.log.ErrorObj("client call failed", "client_error", map[string]any{
		"path":       r.URL.Path,
		"request_id": middleware.GetReqID(r.Context()),
		"status":     status,
		"error":      err.Error(),
	})
	writeJSON(w, status, errorBody{Error: msg})
}

func classify(err error) (int, string) {
	var (
		statusErr    *httpclient.StatusError
		transportErr *httpclient.TransportError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "upstream timed out"
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, fmt.Sprintf("upstream returned status %d", statusErr.StatusCode)
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, "upstream unreachable"
	case errors.Is(err, itemjson.ErrDecode):
		return http.StatusBadGateway, "upstream payload invalid"
	case errors.Is(err, uri.ErrPathSegment):
		return http.StatusBadRequest, "query is not a usable path segment"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func nonNil(items []domain.Item) []domain.Item {
	if items == nil {
		return []domain.Item{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
