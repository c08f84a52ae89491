package leavehandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/domain/leave"
	"leaveflow/internal/transport/http/api"
	"leaveflow/internal/transport/http/middleware"
	"leaveflow/internal/transport/http/shared"
)

type Handler struct {
	Protocol      *leave.Protocol
	Tokens        middleware.TokenVerifier
	PublicBaseURL string
}

func NewHandler(protocol *leave.Protocol, tokens middleware.TokenVerifier, publicBaseURL string) *Handler {
	return &Handler{Protocol: protocol, Tokens: tokens, PublicBaseURL: publicBaseURL}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	// Decision links are opened from an email client, so the credential may
	// arrive as a query parameter instead of a header.
	r.Get(leave.DecisionPath, h.handleProcessApproval)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authorize(h.Tokens))
		r.Post("/apply-leave", h.handleApplyLeave)
		r.Get("/leave-requests/{requestID}", h.handleGetRequest)
		r.Get("/leave-requests/{requestID}/summary.pdf", h.handleSummaryPDF)
		if h.Protocol.Strategy() == leave.StrategyDirect {
			r.With(middleware.RequireScope(auth.ScopeApprover)).Post("/leave-requests/{requestID}/approve", h.handleResolve(leave.StatusApproved))
			r.With(middleware.RequireScope(auth.ScopeApprover)).Post("/leave-requests/{requestID}/reject", h.handleResolve(leave.StatusRejected))
		}
	})
}

func (h *Handler) handleApplyLeave(w http.ResponseWriter, r *http.Request) {
	var payload leave.SubmitInput
	if err := shared.DecodeJSON(r, &payload); err != nil {
		if shared.IsTooLarge(err) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	requestID, err := h.Protocol.SubmitRequest(r.Context(), payload, shared.BaseURL(r, h.PublicBaseURL))
	if err != nil {
		writeError(w, r, "apply leave", err)
		return
	}
	api.Success(w, api.Body{Message: "Leave applied", RequestID: requestID})
}

func (h *Handler) handleProcessApproval(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := leave.DecisionInput{
		RequestID:     q.Get("requestId"),
		Action:        q.Get("action"),
		DecisionToken: q.Get("decisionToken"),
		AuthToken:     decisionAuthToken(r),
	}
	conf, err := h.Protocol.IntakeDecision(r.Context(), in)
	if err != nil {
		writeError(w, r, "process approval", err)
		return
	}
	renderConfirmation(w, conf)
}

// decisionAuthToken prefers the Authorization header and falls back to the
// authToken query parameter carried by hardened decision links.
func decisionAuthToken(r *http.Request) string {
	if token, err := auth.BearerToken(r.Header.Get("Authorization")); err == nil {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get("authToken"))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	api.Success(w, req)
}

func (h *Handler) handleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+req.RequestID+`.pdf"`)
	if err := leave.WriteSummaryPDF(w, req); err != nil {
		slog.Error("leave summary pdf failed", "requestId", req.RequestID, "err", err)
	}
}

func (h *Handler) handleResolve(status leave.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := middleware.GetPrincipal(r.Context())
		conf, err := h.Protocol.ResolveRequest(r.Context(), chi.URLParam(r, "requestID"), status, principal.Subject)
		if err != nil {
			writeError(w, r, "resolve leave request", err)
			return
		}
		api.Success(w, map[string]string{
			"message":   "Leave request " + strings.ToLower(conf.Status.Label()),
			"requestId": conf.RequestID,
			"status":    string(conf.Status),
		})
	}
}

// loadVisible fetches the request named in the path if the caller is its
// submitter, its approver, or holds the approver scope.
func (h *Handler) loadVisible(w http.ResponseWriter, r *http.Request) (leave.LeaveRequest, bool) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return leave.LeaveRequest{}, false
	}
	req, err := h.Protocol.GetRequest(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, "get leave request", err)
		return leave.LeaveRequest{}, false
	}
	visible := principal.HasScope(auth.ScopeApprover) ||
		strings.EqualFold(principal.Subject, req.UserEmail) ||
		strings.EqualFold(principal.Subject, req.ApproverEmail)
	if !visible {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this leave request")
		return leave.LeaveRequest{}, false
	}
	return req, true
}

func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var vErr *leave.ValidationError
	switch {
	case errors.As(err, &vErr):
		api.FailWithFields(w, http.StatusBadRequest, "validation_error", vErr.Message, vErr.Fields)
	case errors.Is(err, leave.ErrUnauthorized):
		slog.Warn(op+" unauthorized", "requestId", middleware.GetRequestID(r.Context()), "err", err)
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "Unauthorized")
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "Leave request not found")
	case errors.Is(err, leave.ErrAlreadyDecided) && !errors.Is(err, leave.ErrDependency):
		api.Fail(w, http.StatusConflict, "already_decided", "Leave request already decided")
	case errors.Is(err, leave.ErrUnsupported):
		api.Fail(w, http.StatusNotFound, "not_found", "Not found")
	default:
		slog.Error(op+" failed", "requestId", middleware.GetRequestID(r.Context()), "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
