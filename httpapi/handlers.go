package httpapi

import (
	"context"
	"net/http"
	"sort"
	"time"

	regAuth "github.com/MrEthical07/regAuth"
	"github.com/MrEthical07/regAuth/middleware"
)

type tokenResponse struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	TokenType        string    `json:"tokenType"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

func newTokenResponse(t regAuth.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		TokenType:        "Bearer",
		AccessExpiresAt:  t.AccessExpiresAt,
		RefreshExpiresAt: t.RefreshExpiresAt,
	}
}

type userResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	MFAEnabled bool   `json:"mfaEnabled"`
}

type registerRequest struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
	tokenResponse
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.engine.Register(r.Context(), regAuth.RegisterRequest{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message: "registration successful",
		User: userResponse{
			ID:         res.UserID,
			Username:   res.Username,
			Email:      res.Email,
			MFAEnabled: res.MFAEnabled,
		},
		tokenResponse: newTokenResponse(res.Tokens),
	})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type challengeResponse struct {
	MFARequired   bool   `json:"mfaRequired"`
	UserID        string `json:"userId"`
	MaskedEmail   string `json:"maskedEmail"`
	CodeDelivered bool   `json:"codeDelivered"`
	DebugCode     string `json:"debugCode,omitempty"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.engine.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if res.MFARequired {
		writeJSON(w, http.StatusOK, challengeResponse{
			MFARequired:   true,
			UserID:        res.UserID,
			MaskedEmail:   res.MaskedEmail,
			CodeDelivered: res.CodeDelivered,
			DebugCode:     res.DebugCode,
		})
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(*res.Tokens))
}

type verifyOTPRequest struct {
	UserID string `json:"userId"`
	Code   string `json:"code"`
}

func (s *server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	tokens, err := s.engine.VerifyOTP(r.Context(), req.UserID, req.Code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(*tokens))
}

type resendOTPRequest struct {
	UserID string `json:"userId"`
}

type resendResponse struct {
	Message       string    `json:"message"`
	MaskedEmail   string    `json:"maskedEmail"`
	CodeDelivered bool      `json:"codeDelivered"`
	ExpiresAt     time.Time `json:"expiresAt"`
	DebugCode     string    `json:"debugCode,omitempty"`
}

func (s *server) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	var req resendOTPRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.engine.ResendOTP(r.Context(), req.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resendResponse{
		Message:       "verification code sent",
		MaskedEmail:   res.MaskedEmail,
		CodeDelivered: res.CodeDelivered,
		ExpiresAt:     res.ExpiresAt,
		DebugCode:     res.DebugCode,
	})
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// handleLogout is not behind Guard so that repeating a logout stays a 200.
func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	access, ok := middleware.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		s.fail(w, r, regAuth.ErrTokenMalformed)
		return
	}

	var req logoutRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.engine.LogoutWithRefresh(r.Context(), access, req.RefreshToken); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	tokens, err := s.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(*tokens))
}

type passwordStrengthRequest struct {
	Password string `json:"password"`
}

func (s *server) handlePasswordStrength(w http.ResponseWriter, r *http.Request) {
	var req passwordStrengthRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.CheckPasswordStrength(req.Password))
}

type mfaStatusResponse struct {
	UserID     string `json:"userId"`
	MFAEnabled bool   `json:"mfaEnabled"`
}

func (s *server) handleMFAStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	status, err := s.engine.MFAStatus(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mfaStatusResponse{UserID: status.UserID, MFAEnabled: status.Enabled})
}

func (s *server) handleEnableMFA(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	if err := s.engine.EnableMFA(r.Context(), userID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mfaStatusResponse{UserID: userID, MFAEnabled: true})
}

type disableMFARequest struct {
	Password string `json:"password"`
}

func (s *server) handleDisableMFA(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req disableMFARequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.engine.DisableMFA(r.Context(), userID, req.Password); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mfaStatusResponse{UserID: userID, MFAEnabled: false})
}

func (s *server) currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok || res == nil {
		s.fail(w, r, regAuth.ErrTokenMalformed)
		return "", false
	}
	return res.UserID, true
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.health))
	for name := range s.health {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	for _, name := range names {
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(names))
		}
		if err := s.health[name](ctx); err != nil {
			s.logger.WarnContext(r.Context(), "health check failed", "check", name, "error", err)
			resp.Checks[name] = "error"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}
