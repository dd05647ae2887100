package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/keygate/backend/internal/config"
	"github.com/keygate/backend/internal/logging"
	"github.com/keygate/backend/internal/model"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 128
	maxEmailLength    = 254
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

// Deps are the collaborators the Authenticator is built from. Challenges and
// Mailer are only required when two-factor is enabled.
type Deps struct {
	Accounts   AccountStore
	Sessions   SessionStore
	Challenges ChallengeStore
	Mailer     CodeSender
	Logger     logging.Logger
}

// LoginInput is an already-decoded login form plus request context.
// A nil or blank Code means no code was supplied.
type LoginInput struct {
	Email      string
	Password   string
	Code       *string
	DeviceName string
	IPAddress  string
}

type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	DeviceName string
	IPAddress  string
}

// RegisterResult carries the new account id, plus a token when auto-login is
// on and the session was created.
type RegisterResult struct {
	AccountID uuid.UUID
	Token     string
}

// Authenticator composes the registrar, hasher, session manager and
// two-factor engine into the register, login and logout protocols. Every
// error it returns is a *Error.
type Authenticator struct {
	accounts    AccountStore
	registrar   *Registrar
	hasher      *Hasher
	sessions    *SessionManager
	twoFactor   *TwoFactorEngine
	logger      logging.Logger
	allowSignup bool
	autoLogin   bool
	// dummyHash is verified against when the email is unknown so a missing
	// account costs the same as a wrong password.
	dummyHash []byte
	// spendVerify burns one bcrypt verification on a rejected login.
	spendVerify func(password string)
	now         func() time.Time
}

func NewAuthenticator(deps Deps, cfg config.AuthConfig, tfCfg config.TwoFactorConfig) (*Authenticator, error) {
	if deps.Accounts == nil || deps.Sessions == nil || deps.Logger == nil {
		return nil, fmt.Errorf("%w: accounts, sessions and logger are required", ErrMisconfigured)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}

	sessionTTL, err := time.ParseDuration(cfg.SessionTTL)
	if err != nil || sessionTTL <= 0 {
		return nil, fmt.Errorf("%w: invalid AUTH_SESSION_TTL", ErrMisconfigured)
	}

	cost, err := strconv.Atoi(strings.TrimSpace(cfg.BcryptCost))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_BCRYPT_COST", ErrMisconfigured)
	}
	hasher, err := NewHasher(cost)
	if err != nil {
		return nil, err
	}

	allowSignup, err := parseBool(cfg.AllowSignup, true)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_ALLOW_SIGNUP", ErrMisconfigured)
	}
	autoLogin, err := parseBool(cfg.AutoLogin, false)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_AUTO_LOGIN", ErrMisconfigured)
	}
	twoFactorEnabled, err := parseBool(tfCfg.Enabled, false)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid TWO_FACTOR_ENABLED", ErrMisconfigured)
	}

	tokens, err := NewTokenIssuer([]byte(cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}

	var twoFactor *TwoFactorEngine
	if twoFactorEnabled {
		if deps.Challenges == nil || deps.Mailer == nil {
			return nil, fmt.Errorf("%w: two-factor requires a challenge store and a mailer", ErrMisconfigured)
		}
		engineCfg, err := parseTwoFactorConfig(tfCfg)
		if err != nil {
			return nil, err
		}
		twoFactor, err = NewTwoFactorEngine(deps.Challenges, deps.Mailer, engineCfg, deps.Logger)
		if err != nil {
			return nil, err
		}
	}

	dummyHash, err := hasher.Hash("keygate-timing-equaliser")
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	a := &Authenticator{
		accounts:    deps.Accounts,
		registrar:   NewRegistrar(deps.Accounts, hasher),
		hasher:      hasher,
		sessions:    NewSessionManager(deps.Sessions, tokens, sessionTTL),
		twoFactor:   twoFactor,
		logger:      deps.Logger.With("module", "authenticator"),
		allowSignup: allowSignup,
		autoLogin:   autoLogin,
		dummyHash:   dummyHash,
		now:         time.Now,
	}
	a.spendVerify = a.verifyDummy
	return a, nil
}

func (a *Authenticator) AllowSignup() bool {
	return a.allowSignup
}

func (a *Authenticator) TwoFactorEnabled() bool {
	return a.twoFactor != nil
}

func (a *Authenticator) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if !a.allowSignup {
		return nil, ErrForbidden
	}

	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if err := validateRegistration(username, email, in.Password); err != nil {
		return nil, err
	}

	account, err := a.registrar.Register(ctx, username, email, in.Password)
	if err != nil {
		return nil, a.fail(ctx, "register", err)
	}
	a.logger.Info(ctx, "account registered", "account_id", account.ID)

	result := &RegisterResult{AccountID: account.ID}
	if !a.autoLogin {
		return result, nil
	}

	token, err := a.sessions.Create(ctx, account.ID, in.DeviceName, in.IPAddress)
	if err != nil {
		// The account exists; the client can still log in explicitly.
		a.logger.Error(ctx, "auto-login after registration failed", "account_id", account.ID, "err", err)
		return result, nil
	}
	result.Token = token
	return result, nil
}

func (a *Authenticator) Login(ctx context.Context, in LoginInput) (*model.LoginOutcome, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrInvalidInput
	}

	account, err := a.accounts.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			a.spendVerify(in.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, a.fail(ctx, "login", internalError("find account", err))
	}

	if len(in.Password) > maxPasswordBytes {
		a.spendVerify(in.Password)
		return nil, ErrInvalidCredentials
	}
	ok, err := a.hasher.Verify(in.Password, account.PasswordHash)
	if err != nil {
		return nil, a.fail(ctx, "login", internalError("verify password", err))
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if a.twoFactor != nil {
		code := ""
		if in.Code != nil {
			code = strings.TrimSpace(*in.Code)
		}
		if code == "" {
			if err := a.twoFactor.Begin(ctx, account); err != nil {
				return nil, a.fail(ctx, "login", err)
			}
			return &model.LoginOutcome{TwoFactorRequired: true}, nil
		}
		if err := a.twoFactor.Complete(ctx, account, code); err != nil {
			return nil, a.fail(ctx, "login", err)
		}
	}

	token, err := a.sessions.Create(ctx, account.ID, in.DeviceName, in.IPAddress)
	if err != nil {
		return nil, a.fail(ctx, "login", err)
	}

	if err := a.accounts.TouchLastOnline(ctx, account.ID, a.now().UTC()); err != nil {
		a.logger.Warn(ctx, "failed to update last online", "account_id", account.ID, "err", err)
	}

	a.logger.Info(ctx, "login succeeded", "account_id", account.ID, "ip", in.IPAddress)
	return &model.LoginOutcome{Token: token}, nil
}

// Logout deletes the session behind token. A token that no longer resolves to
// a session is treated as already logged out.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	sessionID, err := a.sessions.tokens.Verify(token)
	if err != nil {
		return nil
	}
	if err := a.sessions.Invalidate(ctx, sessionID); err != nil {
		return a.fail(ctx, "logout", err)
	}
	return nil
}

// Authenticate resolves a bearer token to the principal behind it.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*model.AuthUser, error) {
	session, err := a.sessions.Validate(ctx, token)
	if err != nil {
		return nil, a.fail(ctx, "authenticate", err)
	}
	return &model.AuthUser{
		AccountID: session.AccountID,
		SessionID: session.ID,
		Session:   session,
	}, nil
}

// Account loads the account behind an authenticated session. An account that
// has disappeared since the session was issued is InvalidSession.
func (a *Authenticator) Account(ctx context.Context, user *model.AuthUser) (*model.Account, error) {
	account, err := a.accounts.FindAccountByID(ctx, user.AccountID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, newError(KindInvalidSession, err)
		}
		return nil, a.fail(ctx, "load account", internalError("find account", err))
	}
	return account, nil
}

// verifyDummy costs the same as checking a real account's password, so a
// rejection does not reveal whether the email exists.
func (a *Authenticator) verifyDummy(password string) {
	if len(password) > maxPasswordBytes {
		password = password[:maxPasswordBytes]
	}
	_, _ = a.hasher.Verify(password, a.dummyHash)
}

// fail translates err to its public kind and logs internal causes.
func (a *Authenticator) fail(ctx context.Context, op string, err error) error {
	pub := Translate(err)
	if pub.Kind == KindInternal {
		a.logger.Error(ctx, op+" failed", "err", err)
	}
	return pub
}

func parseTwoFactorConfig(cfg config.TwoFactorConfig) (TwoFactorConfig, error) {
	length, err := strconv.Atoi(strings.TrimSpace(cfg.CodeLength))
	if err != nil {
		return TwoFactorConfig{}, fmt.Errorf("%w: invalid TWO_FACTOR_CODE_LENGTH", ErrMisconfigured)
	}
	ttl, err := time.ParseDuration(cfg.CodeTTL)
	if err != nil {
		return TwoFactorConfig{}, fmt.Errorf("%w: invalid TWO_FACTOR_CODE_TTL", ErrMisconfigured)
	}
	attempts, err := strconv.Atoi(strings.TrimSpace(cfg.MaxAttempts))
	if err != nil {
		return TwoFactorConfig{}, fmt.Errorf("%w: invalid TWO_FACTOR_MAX_ATTEMPTS", ErrMisconfigured)
	}
	return TwoFactorConfig{CodeLength: length, CodeTTL: ttl, MaxAttempts: attempts}, nil
}

func validateRegistration(username, email, password string) error {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return ErrInvalidInput
	}
	if len(email) > maxEmailLength || !strings.Contains(email, "@") ||
		strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return ErrInvalidInput
	}
	if password == "" || len(password) > maxPasswordBytes {
		return ErrInvalidInput
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func parseBool(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}
