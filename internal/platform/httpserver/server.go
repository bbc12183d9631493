package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	userstore "userrealm/contexts/identity-access/userstore-service"
	domainerrors "userrealm/contexts/identity-access/userstore-service/domain/errors"
	userstorehttp "userrealm/contexts/identity-access/userstore-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "userrealm/internal/platform/httpserver/docs"
)

const apiPrefix = "/api/userstore/v1"

type Server struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	addr      string
	userstore userstore.Module
}

func New(module userstore.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		userstore: module,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server stopping",
			"event", "http_server_stopping",
			"module", "internal/platform/httpserver",
			"layer", "platform",
		)
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST "+apiPrefix+"/authenticate", s.handleAuthenticate)

	s.mux.HandleFunc("POST "+apiPrefix+"/users", s.handleAddUser)
	s.mux.HandleFunc("GET "+apiPrefix+"/users", s.handleListUsers)
	s.mux.HandleFunc("GET "+apiPrefix+"/users/{username}", s.handleGetUser)
	s.mux.HandleFunc("DELETE "+apiPrefix+"/users/{username}", s.handleDeleteUser)
	s.mux.HandleFunc("PUT "+apiPrefix+"/users/{username}/credential", s.handleUpdateCredential)
	s.mux.HandleFunc("PUT "+apiPrefix+"/users/{username}/credential/admin", s.handleUpdateCredentialByAdmin)
	s.mux.HandleFunc("GET "+apiPrefix+"/users/{username}/claims", s.handleGetClaims)
	s.mux.HandleFunc("PUT "+apiPrefix+"/users/{username}/claims", s.handleSetClaims)
	s.mux.HandleFunc("DELETE "+apiPrefix+"/users/{username}/claims", s.handleDeleteClaims)
	s.mux.HandleFunc("GET "+apiPrefix+"/users/{username}/groups", s.handleGetUserGroups)
	s.mux.HandleFunc("PATCH "+apiPrefix+"/users/{username}/groups", s.handleUpdateUserGroups)

	// Group names may contain '/', clients escape it as %2F.
	s.mux.HandleFunc("POST "+apiPrefix+"/groups", s.handleAddGroup)
	s.mux.HandleFunc("GET "+apiPrefix+"/groups", s.handleListGroups)
	s.mux.HandleFunc("DELETE "+apiPrefix+"/groups/{group}", s.handleDeleteGroup)
	s.mux.HandleFunc("PUT "+apiPrefix+"/groups/{group}/name", s.handleRenameGroup)
	s.mux.HandleFunc("GET "+apiPrefix+"/groups/{group}/users", s.handleGetGroupMembers)
	s.mux.HandleFunc("PATCH "+apiPrefix+"/groups/{group}/users", s.handleUpdateGroupMembers)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, userstorehttp.StatusResponse{Status: "ok"})
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req userstorehttp.AuthenticateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.userstore.Handler.AuthenticateHandler(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !resp.Authenticated {
		writeError(w, http.StatusUnauthorized, "authentication_failed", "invalid username or password")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req userstorehttp.AddUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.userstore.Handler.AddUserHandler(r.Context(), actorID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	resp, err := s.userstore.Handler.ListUsersHandler(r.Context(), r.URL.Query().Get("filter"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	resp, err := s.userstore.Handler.GetUserHandler(r.Context(), r.PathValue("username"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	resp, err := s.userstore.Handler.DeleteUserHandler(r.Context(), actorID, r.PathValue("username"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateCredential(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req userstorehttp.UpdateCredentialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.userstore.Handler.UpdateCredentialHandler(r.Context(), actorID, r.PathValue("username"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateCredentialByAdmin(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req userstorehttp.UpdateCredentialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.userstore.Handler.UpdateCredentialByAdminHandler(r.Context(), actorID, r.PathValue("username"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetClaims(w http.ResponseWriter, r *http.Request) {
	resp, err := s.userstore.Handler.GetClaimsHandler(r.Context(), r.PathValue("username"), r.URL.Query().Get("profile"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetClaims(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req userstorehttp.SetClaimsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.userstore.Handler.SetClaimsHandler(r.Context(), actorID, r.PathValue("username"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteClaims(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	resp, err := s.userstore.Handler.DeleteClaimsHandler(
		r.Context(),
		actorID,
		r.PathValue("username"),
		query["claim"],
		query.Get("profile"),
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetUserGroups(w http.ResponseWriter, r *http.Request) {
	resp, err := s.userstore.Handler.GetUserGroupsHandler(r.Context(), r.PathValue("username"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateUserGroups(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req userstorehttp.UpdateUserGroupsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.userstore.Handler.UpdateUserGroupsHandler(r.Context(), actorID, r.PathValue("username"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req userstorehttp.AddGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.userstore.Handler.AddGroupHandler(r.Context(), actorID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	resp, err := s.userstore.Handler.ListGroupsHandler(r.Context(), r.URL.Query().Get("filter"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	resp, err := s.userstore.Handler.DeleteGroupHandler(r.Context(), actorID, r.PathValue("group"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRenameGroup(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req userstorehttp.RenameGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.userstore.Handler.RenameGroupHandler(r.Context(), actorID, r.PathValue("group"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetGroupMembers(w http.ResponseWriter, r *http.Request) {
	resp, err := s.userstore.Handler.GetGroupMembersHandler(r.Context(), r.PathValue("group"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateGroupMembers(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req userstorehttp.UpdateGroupMembersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.userstore.Handler.UpdateGroupMembersHandler(r.Context(), actorID, r.PathValue("group"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeDomainError(w http.ResponseWriter, err error) {
	code := domainerrors.Code(err)
	switch code {
	case "invalid_username", "invalid_password", "invalid_group_name", "invalid_claim", "invalid_request":
		writeError(w, http.StatusBadRequest, code, err.Error())
	case "credential_mismatch":
		writeError(w, http.StatusUnauthorized, code, err.Error())
	case "reserved_principal", "listener_veto":
		writeError(w, http.StatusForbidden, code, err.Error())
	case "user_not_found", "group_not_found":
		writeError(w, http.StatusNotFound, code, err.Error())
	case "user_already_exists", "group_already_exists":
		writeError(w, http.StatusConflict, code, err.Error())
	case "account_locked":
		writeError(w, http.StatusLocked, code, "account is locked")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actorID := strings.TrimSpace(r.Header.Get("X-Actor-Id"))
	if actorID == "" {
		writeError(w, http.StatusUnauthorized, "actor_required", "X-Actor-Id header is required")
		return "", false
	}
	return actorID, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, userstorehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
