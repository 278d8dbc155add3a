package handler

import (
	"net/http"
	"strconv"

	"github.com/go-api-careauth/internal/application/user"
	"github.com/go-api-careauth/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// UserHandler handles the admin user-management endpoints.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	users, next, err := h.svc.List(r.Context(), caller, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UsersPageEnvelope{Data: users, NextCursor: next})
}

func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if !decode(w, r, &req) {
		return
	}
	caller, _ := middleware.UserFromContext(r.Context())
	p, err := h.svc.UpdateRole(r.Context(), caller, chi.URLParam(r, "id"), req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileEnvelope{User: p, Message: "role updated"})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())
	if err := h.svc.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
