package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"kbdraft/internal/domain"
	"kbdraft/internal/metrics"
	"kbdraft/internal/port"
	"kbdraft/internal/usecase"
)

// Server is the HTTP surface of the service: draft generation, direct
// retrieval, health, index reload, and metrics.
type Server struct {
	drafts   *usecase.DraftUseCase
	retrieve *usecase.RetrieveUseCase
	source   port.DocumentSource
	log      *logrus.Entry
	metrics  *metrics.Metrics
	router   *http.ServeMux
}

// New creates a Server. drafts may be nil when generation is disabled;
// /draft-reply then answers 503.
func New(
	drafts *usecase.DraftUseCase,
	retrieve *usecase.RetrieveUseCase,
	source port.DocumentSource,
	log *logrus.Entry,
	m *metrics.Metrics,
) *Server {
	s := &Server{
		drafts:   drafts,
		retrieve: retrieve,
		source:   source,
		log:      log,
		metrics:  m,
		router:   http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", withMethod(http.MethodGet, s.handleHealth))
	s.router.HandleFunc("/draft-reply", withMethod(http.MethodPost, s.handleDraftReply))
	s.router.HandleFunc("/search", withMethod(http.MethodGet, s.handleSearch))
	s.router.HandleFunc("/admin/reload", withMethod(http.MethodPost, s.handleReload))
	s.router.Handle("/metrics", withMethod(http.MethodGet, s.metrics.Handler().ServeHTTP))
}

// withMethod restricts a handler to one HTTP method, mirroring the
// "METHOD /path" mux patterns that require Go 1.22+.
func withMethod(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

// Handler returns the full handler chain.
func (s *Server) Handler() http.Handler {
	return s.instrument(s.router)
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status    string `json:"status"`
	TotalDocs int    `json:"total_docs"`
	VocabSize int    `json:"vocab_size"`
}

type searchResponse struct {
	Query   string                `json:"query"`
	Results []domain.ScoredResult `json:"results"`
}

type reloadResponse struct {
	Status    string `json:"status"`
	TotalDocs int    `json:"total_docs"`
	VocabSize int    `json:"vocab_size"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.retrieve.Stats()
	jsonResponse(w, http.StatusOK, healthResponse{
		Status:    "ok",
		TotalDocs: stats.TotalDocs,
		VocabSize: stats.VocabSize,
	})
}

func (s *Server) handleDraftReply(w http.ResponseWriter, r *http.Request) {
	if s.drafts == nil {
		jsonResponse(w, http.StatusServiceUnavailable, errorResponse{Error: "draft generation is disabled"})
		return
	}

	var ticket domain.Ticket
	if err := json.NewDecoder(r.Body).Decode(&ticket); err != nil {
		jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if ticket.TicketID == "" || ticket.CustomerMessage == "" {
		jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "ticket_id and customer_message are required"})
		return
	}

	start := time.Now()
	reply, err := s.drafts.Draft(r.Context(), ticket)
	if err != nil {
		s.metrics.DraftsTotal.WithLabelValues("error").Inc()
		s.log.WithError(err).WithField("ticket_id", ticket.TicketID).Error("draft generation failed")
		jsonResponse(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	s.metrics.DraftsTotal.WithLabelValues("ok").Inc()
	s.metrics.LLMLatency.Observe(time.Since(start).Seconds())

	jsonResponse(w, http.StatusOK, reply)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "query 'q' is required"})
		return
	}

	topK := 0
	if v := r.URL.Query().Get("k"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil || k <= 0 {
			jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "'k' must be a positive integer"})
			return
		}
		topK = k
	}

	start := time.Now()
	results, err := s.retrieve.Retrieve(query, topK)
	s.metrics.RetrievalLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	if len(results) == 0 {
		s.metrics.RetrievalsTotal.WithLabelValues("empty").Inc()
		results = []domain.ScoredResult{}
	} else {
		s.metrics.RetrievalsTotal.WithLabelValues("results").Inc()
	}

	jsonResponse(w, http.StatusOK, searchResponse{Query: query, Results: results})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	docs, err := s.source.Load()
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if err := s.retrieve.Rebuild(docs); err != nil {
		jsonResponse(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	stats := s.retrieve.Stats()
	s.log.WithFields(logrus.Fields{
		"total_docs": stats.TotalDocs,
		"vocab_size": stats.VocabSize,
	}).Info("index reloaded")

	jsonResponse(w, http.StatusOK, reloadResponse{
		Status:    "reloaded",
		TotalDocs: stats.TotalDocs,
		VocabSize: stats.VocabSize,
	})
}

// instrument wraps the router with request logging and metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.metrics.HTTPRequestsInFlight.Inc()
		defer s.metrics.HTTPRequestsInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(elapsed.Seconds())

		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": elapsed.String(),
		}).Info("request handled")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func jsonResponse(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
