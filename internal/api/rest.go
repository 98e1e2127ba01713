package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/signalsfoundry/transit-planner/internal/logging"
	"github.com/signalsfoundry/transit-planner/internal/observability"
)

// RESTHandler serves the planner operations as JSON over HTTP.
type RESTHandler struct {
	svc       *Service
	collector *observability.APICollector
	log       logging.Logger
}

// NewRESTHandler wraps svc. collector may be nil, in which case no request
// metrics are recorded and /metrics is not served.
func NewRESTHandler(svc *Service, collector *observability.APICollector, log logging.Logger) *RESTHandler {
	if log == nil {
		log = logging.Noop()
	}
	return &RESTHandler{svc: svc, collector: collector, log: log}
}

// Router builds the route table.
func (h *RESTHandler) Router() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes adds the planner routes to router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	h.handle(router, "/v1/journeys", h.PlanJourney).Methods(http.MethodPost)
	h.handle(router, "/v1/stations", h.SearchStations).Methods(http.MethodGet)
	h.handle(router, "/v1/stations/{code:[0-9]+}", h.GetStation).Methods(http.MethodGet)
	h.handle(router, "/v1/status", h.LineStatus).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	if h.collector != nil {
		router.Handle("/metrics", h.collector.Handler()).Methods(http.MethodGet)
	}
}

func (h *RESTHandler) handle(router *mux.Router, route string, fn http.HandlerFunc) *mux.Route {
	var handler http.Handler = fn
	if h.collector != nil {
		handler = h.collector.Middleware(route, handler)
	}
	return router.Handle(route, RequestIDMiddleware(h.log, handler))
}

// PlanJourney handles POST /v1/journeys.
func (h *RESTHandler) PlanJourney(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	resp, err := h.svc.PlanJourney(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// SearchStations handles GET /v1/stations?q=&naptan=&limit=.
func (h *RESTHandler) SearchStations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := StationSearchRequest{Query: q.Get("q"), Naptan: q.Get("naptan")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: limit: %v", ErrInvalidRequest, err))
			return
		}
		req.Limit = limit
	}
	resp, err := h.svc.SearchStations(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// GetStation handles GET /v1/stations/{code}.
func (h *RESTHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(mux.Vars(r)["code"])
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: station code: %v", ErrInvalidRequest, err))
		return
	}
	resp, err := h.svc.Station(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// LineStatus handles GET /v1/status.
func (h *RESTHandler) LineStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.LineStatus(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// Health handles GET /healthz.
func (h *RESTHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"stations": h.svc.network.Len(),
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *RESTHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		requestLogger(r.Context(), h.log).Error(r.Context(), "request failed", logging.Err(err))
	}
	h.writeJSON(w, r, code, errorBody{Error: err.Error()})
}

func (h *RESTHandler) writeJSON(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		requestLogger(r.Context(), h.log).Warn(r.Context(), "encode response failed", logging.Err(err))
	}
}
