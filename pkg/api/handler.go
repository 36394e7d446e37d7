package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazyhaar/imgw-export/pkg/imgw"
	"github.com/hazyhaar/imgw-export/pkg/kit"
	"github.com/hazyhaar/imgw-export/pkg/pipeline"
	"github.com/hazyhaar/imgw-export/pkg/source"
)

// SessionHeader carries the caller's session id; legend and archive listing
// state is kept per session.
const SessionHeader = "X-Session-ID"

// RequestIDHeader echoes the request id assigned to each call.
const RequestIDHeader = "X-Request-ID"

// NewRouter returns an http.Handler with all export API routes. checker may be nil.
func NewRouter(svc *pipeline.Service, checker *source.Checker, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	h := &handler{ep: newEndpoints(svc, checker, logger)}

	mux.HandleFunc("GET /v1/sources", h.handleSources)
	mux.HandleFunc("GET /v1/sources/status", h.handleStatus)
	mux.HandleFunc("GET /v1/session", h.handleSession)
	mux.HandleFunc("POST /v1/legend", h.handleLegend)
	mux.HandleFunc("POST /v1/directory", h.handleDirectory)
	mux.HandleFunc("POST /v1/archival", h.handleArchival)
	mux.HandleFunc("POST /v1/archival/export", h.handleArchivalExport)
	mux.HandleFunc("POST /v1/api", h.handleAPI)
	mux.HandleFunc("POST /v1/api/export", h.handleAPIExport)
	mux.HandleFunc("GET /v1/health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return cors(requestContext(mux))
}

type handler struct {
	ep *endpoints
}

// --- catalog ---

func (h *handler) handleSources(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.ep.sources, nil)
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.ep.status, nil)
}

func (h *handler) handleSession(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.ep.session, nil)
}

// --- legend and directory ---

type httpURLRequest struct {
	URL string `json:"url"`
}

func (h *handler) handleLegend(w http.ResponseWriter, r *http.Request) {
	var req httpURLRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.serve(w, r, h.ep.legend, &legendReq{URL: req.URL})
}

func (h *handler) handleDirectory(w http.ResponseWriter, r *http.Request) {
	var req httpURLRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.serve(w, r, h.ep.directory, &directoryReq{URL: req.URL})
}

// --- archival ---

type httpArchivalRequest struct {
	Source      string `json:"source"`
	Frequency   string `json:"frequency,omitempty"`
	URL         string `json:"url,omitempty"`
	Station     string `json:"station,omitempty"`
	Entry       string `json:"entry,omitempty"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	PreviewRows int    `json:"preview_rows,omitempty"`
	MaxRows     int    `json:"max_rows,omitempty"`
}

func (req httpArchivalRequest) toPipeline() (pipeline.ArchivalRequest, error) {
	from, to, err := parseDateRange(req.From, req.To)
	if err != nil {
		return pipeline.ArchivalRequest{}, err
	}
	return pipeline.ArchivalRequest{
		SourceKey: req.Source,
		Frequency: req.Frequency,
		URL:       req.URL,
		Station:   req.Station,
		Entry:     req.Entry,
		From:      from,
		To:        to,
	}, nil
}

func (h *handler) handleArchival(w http.ResponseWriter, r *http.Request) {
	var req httpArchivalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	preq, err := req.toPipeline()
	if err != nil {
		writeErr(w, err)
		return
	}
	h.serve(w, r, h.ep.archival, &archivalReq{Request: preq, PreviewRows: req.PreviewRows})
}

func (h *handler) handleArchivalExport(w http.ResponseWriter, r *http.Request) {
	var req httpArchivalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	preq, err := req.toPipeline()
	if err != nil {
		writeErr(w, err)
		return
	}
	h.serveWorkbook(w, r, &exportReq{Archival: &preq, MaxRows: req.MaxRows})
}

// --- api ---

type httpAPIRequest struct {
	Source      string `json:"source"`
	StationID   int    `json:"station_id,omitempty"`
	StationName string `json:"station_name,omitempty"`
	Interval    string `json:"interval,omitempty"`
	PreviewRows int    `json:"preview_rows,omitempty"`
	MaxRows     int    `json:"max_rows,omitempty"`
}

func (req httpAPIRequest) toPipeline() (pipeline.APIRequest, error) {
	interval, err := parseInterval(req.Interval)
	if err != nil {
		return pipeline.APIRequest{}, err
	}
	return pipeline.APIRequest{
		SourceKey:   req.Source,
		StationID:   req.StationID,
		StationName: req.StationName,
		Interval:    interval,
	}, nil
}

func (h *handler) handleAPI(w http.ResponseWriter, r *http.Request) {
	var req httpAPIRequest
	if !decodeBody(w, r, &req) {
		return
	}
	preq, err := req.toPipeline()
	if err != nil {
		writeErr(w, err)
		return
	}
	h.serve(w, r, h.ep.api, &apiReq{Request: preq, PreviewRows: req.PreviewRows})
}

func (h *handler) handleAPIExport(w http.ResponseWriter, r *http.Request) {
	var req httpAPIRequest
	if !decodeBody(w, r, &req) {
		return
	}
	preq, err := req.toPipeline()
	if err != nil {
		writeErr(w, err)
		return
	}
	h.serveWorkbook(w, r, &exportReq{API: &preq, MaxRows: req.MaxRows})
}

// --- health ---

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

func (h *handler) serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any) {
	resp, err := ep(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) serveWorkbook(w http.ResponseWriter, r *http.Request, req *exportReq) {
	resp, err := h.ep.export(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	wb := resp.(*pipeline.Workbook)
	w.Header().Set("Content-Type", wb.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", wb.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(wb.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(wb.Data)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024) // 64 KiB max
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// statusCode maps pipeline errors to HTTP statuses.
func statusCode(err error) int {
	var (
		ve *imgw.ValidationError
		te *imgw.TransferError
		ae *imgw.ArchiveError
		ie *pipeline.InputError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &ie):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrUnknownSource):
		return http.StatusNotFound
	case errors.As(err, &te):
		return http.StatusBadGateway
	case errors.As(err, &ae):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusCode(err), err.Error())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// requestContext tags each request with the transport, a request id and the
// caller's session id.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := kit.NewRequestID()
		w.Header().Set(RequestIDHeader, id)

		session := r.Header.Get(SessionHeader)
		if session == "" {
			session = r.URL.Query().Get("session")
		}
		if session == "" {
			session = pipeline.DefaultSession
		}
		w.Header().Set(SessionHeader, session)

		ctx := kit.WithRequestID(kit.WithTransport(r.Context(), "http"), id)
		ctx = kit.WithSessionID(ctx, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SessionHeader)
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, "+SessionHeader+", "+RequestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
