package review

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/hairizuan-noorazman/linkedin-agent/logger"
	"github.com/hairizuan-noorazman/linkedin-agent/session"
)

// DefaultCookieName is the review session cookie.
const DefaultCookieName = "review_session"

// Server serves the review API over a State.
type Server struct {
	state      *State
	sessions   *session.Manager
	cookie     *securecookie.SecureCookie
	cookieName string
	logger     logger.Logger
}

// NewServer creates a review server. An empty cookieSecret gets a random
// key, which invalidates cookies across restarts.
func NewServer(state *State, sessions *session.Manager, cookieSecret string, log logger.Logger) *Server {
	key := []byte(cookieSecret)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}
	return &Server{
		state:      state,
		sessions:   sessions,
		cookie:     securecookie.New(key, nil),
		cookieName: DefaultCookieName,
		logger:     log.WithField("component", "review"),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", HealthHandler).Methods("GET")
	router.HandleFunc("/api/items", s.ListItems).Methods("GET")
	router.HandleFunc("/api/results", s.GetResults).Methods("GET")

	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(s.requireSession)
	protected.HandleFunc("/submit", s.Submit).Methods("POST")
	protected.HandleFunc("/shutdown", s.Shutdown).Methods("POST")
	return router
}

// Listen binds host:port, falling back to the next port when it is taken.
func Listen(host string, port int) (net.Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err == nil {
		return ln, nil
	}
	return net.Listen("tcp", fmt.Sprintf("%s:%d", host, port+1))
}

// Serve runs the HTTP server on ln until ctx is done or the review is shut
// down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "review server listening", map[string]interface{}{
			"address": ln.Addr().String(),
		})
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-s.state.Done():
	}

	s.logger.Info(ctx, "shutting down review server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("review server shutdown: %w", err)
	}
	return <-errCh
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthHandler handles health check requests.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// ItemsResponse lists the items under review.
type ItemsResponse struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
}

// ListItems returns the items and opens a review session.
func (s *Server) ListItems(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create(r.RemoteAddr)
	encoded, err := s.cookie.Encode(s.cookieName, sess.ID.String())
	if err != nil {
		s.logger.Error(r.Context(), "failed to encode session cookie", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	items := s.state.Items()
	respondJSON(w, http.StatusOK, ItemsResponse{Items: items, Total: len(items)})
}

// ResultsResponse reports progress on the approved items.
type ResultsResponse struct {
	Complete bool              `json:"complete"`
	Results  map[string]Result `json:"results"`
	Summary  Summary           `json:"summary"`
}

// GetResults returns the posting results so far.
func (s *Server) GetResults(w http.ResponseWriter, r *http.Request) {
	results, summary, complete := s.state.Results()
	respondJSON(w, http.StatusOK, ResultsResponse{
		Complete: complete,
		Results:  results,
		Summary:  summary,
	})
}

// SubmitRequest carries the approved items.
type SubmitRequest struct {
	Approved []Approval `json:"approved"`
}

// SubmitResponse acknowledges a submission.
type SubmitResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	Count  int    `json:"count"`
}

// Submit hands the approvals to the waiting agent.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := parseJSON(r, &req, s.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := s.state.Submit(req.Approved)
	switch {
	case errors.Is(err, ErrUnknownItem):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrSubmissionPending):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, ErrReviewClosed):
		respondError(w, http.StatusGone, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "failed to submit")
		return
	}

	fields := map[string]interface{}{
		"submission_id": sub.ID.String(),
		"approved":      len(sub.Approved),
	}
	if sess, ok := GetSession(r.Context()); ok {
		fields["session_id"] = sess.ID.String()
	}
	s.logger.Info(r.Context(), "review submitted", fields)
	respondJSON(w, http.StatusAccepted, SubmitResponse{
		Status: "received",
		ID:     sub.ID.String(),
		Count:  len(sub.Approved),
	})
}

// Shutdown ends the review.
func (s *Server) Shutdown(w http.ResponseWriter, r *http.Request) {
	s.logger.Info(r.Context(), "review shutdown requested", nil)
	s.state.Shutdown()
	respondSuccess(w, "shutting down")
}
