package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"golang.org/x/time/rate"

	"notequiz"
)

const (
	cookieName = "quiz-session"
	sessionKey = "id"

	// sessionTTL is how long an untouched quiz session or client limiter is kept
	sessionTTL = 30 * time.Minute
)

// Server hosts quiz sessions over JSON
type Server struct {
	quizzer     notequiz.Quizzer
	aiAvailable bool
	cookies     *sessions.CookieStore
	validate    *validator.Validate
	limiter     *clientLimiter

	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	session  *notequiz.Session
	lastSeen time.Time
}

// NewServer creates a server. aiAvailable tells new sessions whether generation is configured.
func NewServer(quizzer notequiz.Quizzer, aiAvailable bool, secret []byte, limit rate.Limit, burst int) *Server {
	cookies := sessions.NewCookieStore(secret)
	cookies.Options.HttpOnly = true
	cookies.Options.SameSite = http.SameSiteLaxMode

	return &Server{
		quizzer:     quizzer,
		aiAvailable: aiAvailable,
		cookies:     cookies,
		validate:    validator.New(),
		limiter:     newClientLimiter(limit, burst),
		ttl:         sessionTTL,
		now:         time.Now,
		sessions:    make(map[string]*sessionEntry),
	}
}

// Routes returns the handler of every endpoint
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/notes/{noteID}/session", s.handleCreateSession).Methods(http.MethodPost)
	r.HandleFunc("/session", s.handleGetSession).Methods(http.MethodGet)
	r.HandleFunc("/session/answer", s.handleAnswer).Methods(http.MethodPost)
	return r
}

type blockRequest struct {
	ID   string `json:"id" validate:"required"`
	Type string `json:"type" validate:"required"`
	Text string `json:"text"`
}

type createSessionRequest struct {
	Name   string         `json:"name"`
	Goal   int            `json:"goal" validate:"omitempty,min=1,max=100"`
	Blocks []blockRequest `json:"blocks" validate:"dive"`
}

type answerRequest struct {
	Index  *int   `json:"index" validate:"required,min=0"`
	Choice string `json:"choice" validate:"required"`
}

type answerResponse struct {
	Correct bool                  `json:"correct"`
	State   notequiz.SessionState `json:"state"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientKey(r), s.now()) {
		writeError(w, http.StatusTooManyRequests, "Too many sessions, try again later")
		return
	}

	var req createSessionRequest
	if !s.decode(w, r, &req) {
		return
	}

	note := notequiz.Note{
		ID:     mux.Vars(r)["noteID"],
		Name:   req.Name,
		Blocks: make([]notequiz.NoteBlock, 0, len(req.Blocks)),
	}
	for _, block := range req.Blocks {
		note.Blocks = append(note.Blocks, notequiz.NoteBlock{ID: block.ID, Type: block.Type, Text: block.Text})
	}

	session := notequiz.NewSession(req.Goal)
	session.SetAIAvailability(s.aiAvailable)
	if err := session.LoadNote(note); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := session.Start(r.Context(), s.quizzer); err != nil {
		switch {
		case errors.Is(err, notequiz.ErrCapabilityUnavailable):
			writeError(w, http.StatusServiceUnavailable, "Quiz generation is not configured. Set OPENAI_API_KEY to enable it.")
		case errors.Is(err, notequiz.ErrInsufficientContent):
			writeError(w, http.StatusUnprocessableEntity, "This note does not have enough text to generate quizzes")
		default:
			notequiz.Logger().Error("failed to start quiz session", "note_id", note.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to start quiz session")
		}
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &sessionEntry{session: session, lastSeen: s.now()}
	s.mu.Unlock()

	cookie, _ := s.cookies.Get(r, cookieName)
	cookie.Values[sessionKey] = id
	if err := cookie.Save(r, w); err != nil {
		notequiz.Logger().Error("failed to save session cookie", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	notequiz.VerboseLog("Session %s started for note %s", id, note.ID)
	writeJSON(w, http.StatusCreated, session.State())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(r)
	if !ok {
		writeError(w, http.StatusNotFound, "No quiz session")
		return
	}
	writeJSON(w, http.StatusOK, session.State())
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(r)
	if !ok {
		writeError(w, http.StatusNotFound, "No quiz session")
		return
	}

	var req answerRequest
	if !s.decode(w, r, &req) {
		return
	}

	correct, err := session.Answer(r.Context(), *req.Index, req.Choice)
	switch {
	case errors.Is(err, notequiz.ErrAlreadyAnswered),
		errors.Is(err, notequiz.ErrSessionFinished),
		errors.Is(err, notequiz.ErrNotCurrentQuiz),
		errors.Is(err, notequiz.ErrSessionNotStarted):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		notequiz.Logger().Error("failed to record answer", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to record answer")
		return
	}

	writeJSON(w, http.StatusOK, answerResponse{Correct: correct, State: session.State()})
}

// session returns the quiz session bound to the request cookie
func (s *Server) session(r *http.Request) (*notequiz.Session, bool) {
	cookie, err := s.cookies.Get(r, cookieName)
	if err != nil {
		return nil, false
	}
	id, ok := cookie.Values[sessionKey].(string)
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = s.now()
	return entry.session, true
}

// Sweep drops quiz sessions and client limiters idle for longer than the session TTL.
// It returns the number of sessions removed.
func (s *Server) Sweep(now time.Time) int {
	s.mu.Lock()
	removed := 0
	for id, entry := range s.sessions {
		if now.Sub(entry.lastSeen) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	s.mu.Unlock()

	s.limiter.sweep(now, s.ttl)
	return removed
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		notequiz.Logger().Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// clientLimiter rate limits each client separately
type clientLimiter struct {
	mu     sync.Mutex
	limit  rate.Limit
	burst  int
	limits map[string]*clientLimit
}

type clientLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(limit rate.Limit, burst int) *clientLimiter {
	return &clientLimiter{
		limit:  limit,
		burst:  burst,
		limits: make(map[string]*clientLimit),
	}
}

func (l *clientLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	entry, ok := l.limits[key]
	if !ok {
		entry = &clientLimit{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limits[key] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()
	return entry.limiter.AllowN(now, 1)
}

func (l *clientLimiter) sweep(now time.Time, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.limits {
		if now.Sub(entry.lastSeen) > ttl {
			delete(l.limits, key)
		}
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
