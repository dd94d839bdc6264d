package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/timelog/internal/domain"
	"github.com/pbaille/timelog/internal/rawfact"
	"github.com/pbaille/timelog/internal/report"
	"github.com/pbaille/timelog/internal/store"
	"github.com/pbaille/timelog/internal/timeframe"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Server handles HTTP requests for the time tracking API
type Server struct {
	store  *store.Store
	addr   string
	tf     timeframe.Config
	logger *zap.Logger
}

// New creates a new API server
func New(s *store.Store, addr string, tf timeframe.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{store: s, addr: addr, tf: tf, logger: logger}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Facts
	mux.HandleFunc("GET /facts", s.listFacts)
	mux.HandleFunc("POST /facts", s.addFact)
	mux.HandleFunc("GET /facts/current", s.currentFact)
	mux.HandleFunc("POST /facts/current/stop", s.stopFact)
	mux.HandleFunc("DELETE /facts/current", s.cancelFact)
	mux.HandleFunc("GET /facts/{id}", s.getFact)
	mux.HandleFunc("DELETE /facts/{id}", s.removeFact)

	// Parsing without saving
	mux.HandleFunc("POST /parse", s.parse)

	// Lookups
	mux.HandleFunc("GET /categories", s.listCategories)
	mux.HandleFunc("GET /activities", s.listActivities)
	mux.HandleFunc("GET /tags", s.listTags)

	mux.HandleFunc("GET /export", s.export)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return withCORS(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("starting server", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RawFactRequest is the request body for adding or parsing a raw fact
type RawFactRequest struct {
	Raw string `json:"raw"`
}

// ParseResponse describes how a raw fact would be interpreted
type ParseResponse struct {
	RawFact rawfact.RawFact `json:"raw_fact"`
	Tags    []string        `json:"tags,omitempty"`
	Start   *time.Time      `json:"start,omitempty"`
	End     *time.Time      `json:"end,omitempty"`
}

func decodeRaw(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req RawFactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if strings.TrimSpace(req.Raw) == "" {
		writeError(w, http.StatusBadRequest, "raw is required")
		return "", false
	}
	return req.Raw, true
}

func (s *Server) parse(w http.ResponseWriter, r *http.Request) {
	raw, ok := decodeRaw(w, r)
	if !ok {
		return
	}
	rf, err := rawfact.Parse(raw)
	if err != nil {
		s.fail(w, err)
		return
	}
	tags, description := rawfact.SplitTags(rf.Description)
	rf.Description = description

	start, end, err := timeframe.Complete(rf.TimeInfo, s.tf, true)
	if err != nil {
		s.fail(w, err)
		return
	}
	if _, _, err := timeframe.ValidateRange(start, end); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ParseResponse{RawFact: rf, Tags: tags, Start: start, End: end})
}

func (s *Server) addFact(w http.ResponseWriter, r *http.Request) {
	raw, ok := decodeRaw(w, r)
	if !ok {
		return
	}
	fact, err := rawfact.ParseFact(raw, s.tf)
	if err != nil {
		s.fail(w, err)
		return
	}
	saved, err := s.store.SaveFact(*fact)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) getFact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	fact, err := s.store.GetFact(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fact)
}

func (s *Server) removeFact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.RemoveFact(id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) currentFact(w http.ResponseWriter, r *http.Request) {
	fact, err := s.store.GetOngoingFact()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fact)
}

func (s *Server) stopFact(w http.ResponseWriter, r *http.Request) {
	fact, err := s.store.StopOngoingFact(s.tf.CurrentTime())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fact)
}

func (s *Server) cancelFact(w http.ResponseWriter, r *http.Request) {
	fact, err := s.store.CancelOngoingFact()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fact)
}

// factFilter reads from, to, q and limit query parameters
func (s *Server) factFilter(r *http.Request) (store.FactFilter, error) {
	q := r.URL.Query()
	filter := store.FactFilter{Search: q.Get("q")}
	if v := q.Get("from"); v != "" {
		t, err := timeframe.ResolveBound(v, s.tf, false)
		if err != nil {
			return filter, err
		}
		filter.Start = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := timeframe.ResolveBound(v, s.tf, true)
		if err != nil {
			return filter, err
		}
		filter.End = &t
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	return filter, nil
}

func (s *Server) listFacts(w http.ResponseWriter, r *http.Request) {
	filter, err := s.factFilter(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	facts, err := s.store.ListFacts(filter)
	if err != nil {
		s.fail(w, err)
		return
	}
	if facts == nil {
		facts = []domain.Fact{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"facts": facts,
	})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "tsv"
	}
	writer, err := report.New(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := s.factFilter(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	facts, err := s.store.ListFacts(filter)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", writer.ContentType())
	if err := writer.WriteFacts(w, facts); err != nil {
		s.logger.Error("export failed", zap.String("format", format), zap.Error(err))
	}
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	filter := store.ActivityFilter{Search: r.URL.Query().Get("q")}
	if r.URL.Query().Has("category") {
		c := r.URL.Query().Get("category")
		filter.Category = &c
	}
	activities, err := s.store.ListActivities(filter)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"activities": activities})
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// fail maps an error onto a status code and writes it
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var (
		formatErr *timeframe.FormatError
		typeErr   *timeframe.TypeError
		rangeErr  *timeframe.RangeError
	)
	switch {
	case errors.As(err, &formatErr), errors.As(err, &typeErr), errors.As(err, &rangeErr),
		errors.Is(err, domain.ErrEmptyName):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrOverlap), errors.Is(err, store.ErrOngoingExists), errors.Is(err, store.ErrExists):
		return http.StatusConflict
	case errors.Is(err, store.ErrTooShort):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
