package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/keygate/backend/internal/model"
	"github.com/keygate/backend/internal/service"
)

const deviceNameHeader = "X-Device-Name"

type AuthHandler struct {
	svc *service.Authenticator
}

func NewAuthHandler(svc *service.Authenticator) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register godoc
// @Summary Register a new account
// @Description Sign up when AUTH_ALLOW_SIGNUP is true. Returns a token too when AUTH_AUTO_LOGIN is on.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Username, email and password"
// @Success 201 {object} model.RegisterResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAuthError(c, service.ErrInvalidInput)
		return
	}

	res, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		DeviceName: deviceName(c),
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.RegisterResponse{
		AccountID: res.AccountID.String(),
		Token:     res.Token,
	})
}

// Login godoc
// @Summary Login
// @Description With two-factor enabled, a request without a code mails one and answers 202.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Email, password and optional code"
// @Success 200 {object} model.LoginResponse
// @Success 202 {object} model.TwoFactorResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAuthError(c, service.ErrInvalidInput)
		return
	}

	out, err := h.svc.Login(c.Request.Context(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		Code:       req.Code,
		DeviceName: deviceName(c),
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		writeAuthError(c, err)
		return
	}

	if out.TwoFactorRequired {
		c.JSON(http.StatusAccepted, model.TwoFactorResponse{
			Status:  "two_factor_required",
			Message: "A sign-in code was sent to your email",
		})
		return
	}
	c.JSON(http.StatusOK, model.LoginResponse{Token: out.Token})
}

// Logout godoc
// @Summary Logout
// @Description Deletes the session. The token may be sent in the body or as a bearer header. Always succeeds for unknown tokens.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LogoutRequest false "Session token"
// @Success 200 {object} model.AuthLogoutResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req model.LogoutRequest
	if c.Request.ContentLength != 0 {
		// An unreadable body falls back to the bearer header below.
		_ = c.ShouldBindJSON(&req)
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = bearerToken(c)
	}

	if err := h.svc.Logout(c.Request.Context(), token); err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.AuthLogoutResponse{Status: "logged_out"})
}

// Config godoc
// @Summary Get auth config
// @Tags auth
// @Produce json
// @Success 200 {object} model.AuthConfigResponse
// @Router /api/v1/auth/config [get]
func (h *AuthHandler) Config(c *gin.Context) {
	c.JSON(http.StatusOK, model.AuthConfigResponse{
		AllowSignup:      h.svc.AllowSignup(),
		TwoFactorEnabled: h.svc.TwoFactorEnabled(),
	})
}

// Me godoc
// @Summary Get current session
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AuthMeResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		writeAuthError(c, service.ErrInvalidSession)
		return
	}
	account, err := h.svc.Account(c.Request.Context(), user)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.AuthMeResponse{
		AccountID:  user.AccountID.String(),
		Username:   account.Username,
		Email:      account.Email,
		SessionID:  user.SessionID.String(),
		DeviceName: user.Session.DeviceName,
		IPAddress:  user.Session.IPAddress,
		ExpiresAt:  user.Session.ExpiresAt,
	})
}

func deviceName(c *gin.Context) string {
	if name := strings.TrimSpace(c.GetHeader(deviceNameHeader)); name != "" {
		return name
	}
	return c.Request.UserAgent()
}

func writeAuthError(c *gin.Context, err error) {
	var pub *service.Error
	if !errors.As(err, &pub) {
		pub = service.Translate(err)
	}
	c.JSON(statusFor(pub.Kind), model.ErrorResponse{Error: pub.Kind.Message()})
}

func statusFor(kind service.ErrorKind) int {
	switch kind {
	case service.KindEmailAlreadyInUse, service.KindUsernameAlreadyInUse:
		return http.StatusConflict
	case service.KindInvalidCredentials, service.KindInvalidSession:
		return http.StatusUnauthorized
	case service.KindInvalidInput:
		return http.StatusBadRequest
	case service.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
