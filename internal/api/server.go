package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pixelcraft/internal/assistant"
	"pixelcraft/internal/auth"
	"pixelcraft/internal/collab"
	"pixelcraft/internal/ledger"
	"pixelcraft/internal/project"

	"github.com/gorilla/websocket"
)

type Server struct {
	httpServer   *http.Server
	hub          *collab.Hub
	authSvc      *auth.Service
	projectSvc   *project.Service
	assistantSvc *assistant.Service
	security     SecurityConfig

	collabWriteTimeout time.Duration
	authFailureCounter *windowCounter
}

type principalContextKey struct{}

func New(
	addr string,
	hub *collab.Hub,
	authSvc *auth.Service,
	projectSvc *project.Service,
	assistantSvc *assistant.Service,
	collabWriteTimeout time.Duration,
	securityCfg ...SecurityConfig,
) *Server {
	cfg := defaultSecurityConfig()
	if len(securityCfg) > 0 {
		cfg = normalizeSecurityConfig(securityCfg[0])
	}
	s := &Server{
		hub:                hub,
		authSvc:            authSvc,
		projectSvc:         projectSvc,
		assistantSvc:       assistantSvc,
		security:           cfg,
		collabWriteTimeout: collabWriteTimeout,
		authFailureCounter: newWindowCounter(cfg.AuthFailureAlertWindow),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/auth/register", s.handleRegister)
	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/auth/me", s.withAuth(s.handleMe))
	mux.HandleFunc("/api/projects", s.withAuth(s.handleProjects))
	mux.HandleFunc("/api/projects/", s.withAuth(s.handleProjectByID))
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/chat/history/", s.handleChatHistory)
	mux.HandleFunc("/api/ws/collaborate/", s.handleCollaborate)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	log.Printf("pixelcraft listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.authenticate(r)
		if err != nil {
			s.auditf(r, "auth_failed", "invalid bearer token")
			s.maybeAlertAuthFailure(r)
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error": map[string]any{
					"code":    "unauthorized",
					"message": err.Error(),
				},
			})
			return
		}
		s.authFailureCounter.Reset(s.clientIP(r))
		ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) authenticate(r *http.Request) (auth.Principal, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return auth.Principal{}, fmt.Errorf("missing or invalid bearer token")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return auth.Principal{}, fmt.Errorf("missing or invalid bearer token")
	}
	principal, err := s.authSvc.AuthenticateToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return auth.Principal{}, fmt.Errorf("missing or invalid bearer token")
	}
	return principal, nil
}

func (s *Server) principalFromContext(ctx context.Context) (auth.Principal, bool) {
	v := ctx.Value(principalContextKey{})
	if v == nil {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

func (s *Server) requirePrincipal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, ok := s.principalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return auth.Principal{}, false
	}
	return principal, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "service": "pixelcraft"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	res, err := s.authSvc.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, ledger.ErrEmailTaken) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "email already registered"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	s.auditf(r, "user_registered", res.User.Email)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	res, err := s.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.auditf(r, "login_failed", req.Email)
			s.maybeAlertAuthFailure(r)
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid email or password"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	s.authFailureCounter.Reset(s.clientIP(r))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	stored, err := s.authSvc.Lookup(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, ledger.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "user not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req project.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		obj, err := s.projectSvc.Create(r.Context(), principal.UserID, req)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, obj)
	case http.MethodGet:
		items, err := s.projectSvc.List(r.Context(), principal.UserID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, items)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	}
}

func (s *Server) handleProjectByID(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/projects/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "project id missing"})
		return
	}
	parts := strings.Split(path, "/")
	projectID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			obj, err := s.projectSvc.Get(r.Context(), principal.UserID, projectID)
			if err != nil {
				s.writeProjectError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, obj)
		case http.MethodPut:
			var patch project.Patch
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			obj, err := s.projectSvc.Update(r.Context(), principal.UserID, projectID, patch)
			if err != nil {
				s.writeProjectError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, obj)
		case http.MethodDelete:
			if err := s.projectSvc.Delete(r.Context(), principal.UserID, projectID); err != nil {
				s.writeProjectError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"message": "Project deleted successfully"})
		default:
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		}
		return
	}

	action := strings.Join(parts[1:], "/")
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	switch action {
	case "upload-image":
		s.handleUploadImage(w, r, principal, projectID)
	case "export":
		format := r.URL.Query().Get("format")
		obj, err := s.projectSvc.Export(r.Context(), principal.UserID, projectID, format)
		if err != nil {
			s.writeProjectError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, obj)
	case "filters/blur":
		layerID := r.URL.Query().Get("layer_id")
		amount := queryFloat(r, "blur_amount", 5.0)
		obj, err := s.projectSvc.ApplyBlur(r.Context(), principal.UserID, projectID, layerID, amount)
		if err != nil {
			s.writeProjectError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, obj)
	case "filters/brightness":
		layerID := r.URL.Query().Get("layer_id")
		value := queryFloat(r, "brightness", 1.2)
		obj, err := s.projectSvc.ApplyBrightness(r.Context(), principal.UserID, projectID, layerID, value)
		if err != nil {
			s.writeProjectError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, obj)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown action"})
	}
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request, principal auth.Principal, projectID string) {
	r.Body = http.MaxBytesReader(w, r.Body, s.projectSvc.MaxUploadBytes()+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "file field is required"})
		return
	}
	defer file.Close()

	mime := header.Header.Get("Content-Type")
	obj, err := s.projectSvc.UploadImage(r.Context(), principal.UserID, projectID, project.UploadImageRequest{
		Reader:       file,
		OriginalName: header.Filename,
		MIMEType:     mime,
	})
	if err != nil {
		if errors.Is(err, project.ErrFileTooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": err.Error()})
			return
		}
		s.writeProjectError(w, err)
		return
	}
	s.auditf(r, "image_uploaded", header.Filename)
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	var req struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	reply, err := s.assistantSvc.Chat(r.Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, assistant.ErrUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "AI assistant is not configured"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	sessionID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/chat/history/"), "/")
	if sessionID == "" {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "session id missing"})
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	items, err := s.assistantSvc.History(r.Context(), sessionID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": items})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleCollaborate attaches a websocket to the project's fan-out hub.
// The socket is a pure relay and is intentionally unauthenticated; all
// writes that matter go through the authenticated REST surface.
func (s *Server) handleCollaborate(w http.ResponseWriter, r *http.Request) {
	projectID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/ws/collaborate/"), "/")
	if projectID == "" {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "project id missing"})
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.auditf(r, "collab_connected", projectID)
	collab.NewSession(s.hub, conn, projectID, s.collabWriteTimeout).Run()
}

func (s *Server) writeProjectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, project.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "project not found"})
	case errors.Is(err, project.ErrNotOwner):
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "not the project owner"})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	}
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	if v := r.URL.Query().Get(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (s *Server) clientIP(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); v != "" {
		parts := strings.Split(v, ",")
		if len(parts) > 0 {
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
	}
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if h, _, err := net.SplitHostPort(host); err == nil && h != "" {
		return h
	}
	return host
}

func (s *Server) auditf(r *http.Request, event, detail string) {
	log.Printf(
		"audit event=%s ip=%s method=%s path=%s detail=%q",
		event, s.clientIP(r), r.Method, r.URL.Path, detail,
	)
}

func (s *Server) maybeAlertAuthFailure(r *http.Request) {
	ip := s.clientIP(r)
	n := s.authFailureCounter.Inc(ip, time.Now().UTC())
	if n >= s.security.AuthFailureAlertLimit {
		log.Printf(
			"security_alert event=auth_fail_burst ip=%s failures=%d window_sec=%d",
			ip, n, int(s.security.AuthFailureAlertWindow.Seconds()),
		)
	}
}

func writeJSON(w http.ResponseWriter, status int, obj any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(obj)
}
