package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/firstaid/internal/model"
)

type createUserRequest struct {
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Password    string         `json:"password"`
	Role        model.UserRole `json:"role"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if h.handleStoreError(w, err, "users") {
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password required", http.StatusBadRequest)
		return
	}
	switch req.Role {
	case "":
		req.Role = model.UserRoleTeacher
	case model.UserRoleTeacher, model.UserRoleAdmin:
	default:
		http.Error(w, "role must be teacher or admin", http.StatusBadRequest)
		return
	}

	existing, err := h.store.GetUserByUsername(req.Username)
	if h.handleStoreError(w, err, "user") {
		return
	}
	if existing != nil {
		http.Error(w, "username already taken", http.StatusConflict)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	u := model.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	}
	u.ID, err = h.store.CreateUser(u)
	if h.handleStoreError(w, err, "user") {
		return
	}
	respondJSON(w, http.StatusCreated, u)
}

func (h *Handler) handleToggleUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}
	if self := model.UserFromContext(r.Context()); self != nil && self.ID == id {
		http.Error(w, "cannot deactivate yourself", http.StatusBadRequest)
		return
	}

	found, err := h.store.ToggleUserActive(id)
	if h.handleStoreError(w, err, "user") {
		return
	}
	if !found {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	u, err := h.store.GetUserByID(id)
	if h.handleStoreError(w, err, "user") {
		return
	}
	h.logger.Info("toggled user", "id", id, "active", u.Active)
	respondJSON(w, http.StatusOK, u)
}
