package http

import (
	"net/http"
	"time"

	"pocketbook/internal/domain/user"
	"pocketbook/internal/shared/middleware"
)

type AuthHandler struct {
	users     *user.Service
	cookieTTL time.Duration
}

func NewAuthHandler(users *user.Service, cookieTTL time.Duration) *AuthHandler {
	return &AuthHandler{users: users, cookieTTL: cookieTTL}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SendOTPRequest struct {
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuthResponse struct {
	Message string        `json:"message"`
	Token   string        `json:"token,omitempty"`
	User    *UserResponse `json:"user"`
}

func toUserResponse(u *user.User) *UserResponse {
	return &UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

// HandleRegister handles POST /api/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.users.Register(r.Context(), user.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Message: "User registered successfully",
		User:    toUserResponse(u),
	})
}

// HandleLogin handles POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.writeSession(w, r, "Login successful", session)
}

// HandleSendOTP handles POST /api/auth/send-otp
func (h *AuthHandler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req SendOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.users.SendOTP(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "OTP sent successfully")
}

// HandleVerifyOTP handles POST /api/auth/verify-otp
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.users.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.writeSession(w, r, "OTP verified successfully", session)
}

// HandleLogout handles POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, r *http.Request, message string, session *user.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.cookieTTL.Seconds()),
	})

	writeJSON(w, http.StatusOK, AuthResponse{
		Message: message,
		Token:   session.Token,
		User:    toUserResponse(session.User),
	})
}

// Only set Secure when the client actually used HTTPS.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
