package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
	"github.com/hazyhaar/placestd/pkg/kit"
	"github.com/hazyhaar/placestd/pkg/metrics"
	"github.com/hazyhaar/placestd/pkg/standardize"
)

// NewRouter returns an http.Handler with all placestd API routes.
func NewRouter(reg *standardize.Registry, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	h := &handler{
		endpoints: NewEndpoints(reg, logger),
		reg:       reg,
	}

	mux.HandleFunc("GET /v1/standardize/batch", methodNotAllowed) // prevent GET on batch
	mux.HandleFunc("POST /v1/standardize/batch", h.handleBatch)
	mux.HandleFunc("GET /v1/standardize", h.handleStandardize)
	mux.HandleFunc("GET /v1/places/{id}", h.handlePlace)
	mux.HandleFunc("GET /v1/health", h.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	return cors(requestID(mux))
}

type handler struct {
	endpoints Endpoints
	reg       *standardize.Registry
}

// --- standardize one text ---

func (h *handler) handleStandardize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("q")
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "missing q")
		return
	}
	n := 0
	if v := q.Get("n"); v != "" {
		var err error
		if n, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "n must be an integer")
			return
		}
	}
	opts, err := parseOptions(q.Get("mode"), n, q.Get("country"), q.Get("diagnostics") == "true")
	if err != nil {
		writeErr(w, err)
		return
	}

	resp, err := h.endpoints.Standardize(r.Context(), &standardizeReq{Text: text, options: opts})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- standardize batch ---

type httpBatchRequest struct {
	Texts       []string `json:"texts"`
	Mode        string   `json:"mode,omitempty"`
	N           int      `json:"n,omitempty"`
	Country     string   `json:"country,omitempty"`
	Diagnostics bool     `json:"diagnostics,omitempty"`
}

func (h *handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 256*1024) // 256 KiB max
	var req httpBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	opts, err := parseOptions(req.Mode, req.N, req.Country, req.Diagnostics)
	if err != nil {
		writeErr(w, err)
		return
	}

	resp, err := h.endpoints.Batch(r.Context(), &batchReq{Texts: req.Texts, options: opts})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- place by id ---

func (h *handler) handlePlace(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}
	resp, err := h.endpoints.Place(r.Context(), &placeReq{ID: id})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status    string            `json:"status"`
	Gazetteer *standardize.Info `json:"gazetteer,omitempty"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := h.reg.Current(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "loading"})
		return
	}
	info := h.reg.Info()
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Gazetteer: &info})
}

// --- helpers ---

// writeErr maps endpoint errors to status codes.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, standardize.ErrNotLoaded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, standardize.ErrDataIntegrity):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, gazetteer.ErrPlaceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// requestID propagates X-Request-ID, generating one when absent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			b := make([]byte, 8)
			_, _ = rand.Read(b)
			id = hex.EncodeToString(b)
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithTransport(kit.WithRequestID(r.Context(), id), "http")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
