package http

import (
	"net/http"

	"pocketbook/internal/domain/user"
)

type UserHandler struct {
	users *user.Service
}

func NewUserHandler(users *user.Service) *UserHandler {
	return &UserHandler{users: users}
}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type ProfileResponse struct {
	*UserResponse
	Stats user.Stats `json:"stats"`
}

// HandleGetMe handles GET /api/users/me
func (h *UserHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	profile, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		UserResponse: toUserResponse(profile.User),
		Stats:        profile.Stats,
	})
}

// HandleUpdateMe handles PUT /api/users/me
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), userID, user.UpdateProfileParams{Name: req.Name, Email: req.Email})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleChangePassword handles POST /api/users/change-password
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err = h.users.ChangePassword(r.Context(), userID, user.ChangePasswordParams{
		Current: req.CurrentPassword,
		New:     req.NewPassword,
		Confirm: req.ConfirmPassword,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Password changed successfully")
}
