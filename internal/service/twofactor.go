package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/keygate/backend/internal/logging"
	"github.com/keygate/backend/internal/model"
	tmpl "github.com/keygate/backend/internal/template"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// TwoFactorConfig bounds a challenge's life.
type TwoFactorConfig struct {
	CodeLength  int
	CodeTTL     time.Duration
	MaxAttempts int
}

// TwoFactorEngine drives the per-account NoChallenge -> Pending -> Consumed
// cycle. A new Begin overwrites any pending code; Complete consumes it once.
type TwoFactorEngine struct {
	store  ChallengeStore
	sender CodeSender
	cfg    TwoFactorConfig
	logger logging.Logger
	now    func() time.Time
}

func NewTwoFactorEngine(store ChallengeStore, sender CodeSender, cfg TwoFactorConfig, logger logging.Logger) (*TwoFactorEngine, error) {
	if cfg.CodeLength < 4 || cfg.CodeLength > 32 {
		return nil, fmt.Errorf("%w: two-factor code length must be in [4, 32]", ErrMisconfigured)
	}
	if cfg.CodeTTL <= 0 {
		return nil, fmt.Errorf("%w: two-factor code TTL must be positive", ErrMisconfigured)
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("%w: two-factor max attempts must be at least 1", ErrMisconfigured)
	}
	return &TwoFactorEngine{
		store:  store,
		sender: sender,
		cfg:    cfg,
		logger: logger.With("module", "two_factor"),
		now:    time.Now,
	}, nil
}

// Begin stores a fresh code for the account and mails it. If delivery fails
// the stored code is removed again so no pending challenge outlives a code
// that was never sent.
func (e *TwoFactorEngine) Begin(ctx context.Context, account *model.Account) error {
	code, err := generateCode(e.cfg.CodeLength)
	if err != nil {
		return internalError("generate code", err)
	}

	now := e.now().UTC()
	ch := model.Challenge{
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(e.cfg.CodeTTL),
	}
	if err := e.store.PutChallenge(ctx, account.ID, ch); err != nil {
		return internalError("store challenge", err)
	}

	data := tmpl.CodeData{
		Code:      code,
		Username:  account.Username,
		ExpiresIn: e.cfg.CodeTTL,
		ExpiresAt: ch.ExpiresAt,
	}
	if err := e.sender.SendCode(ctx, account.Email, data); err != nil {
		if delErr := e.store.DeleteChallenge(ctx, account.ID); delErr != nil {
			e.logger.Error(ctx, "failed to roll back challenge after delivery failure",
				"account_id", account.ID, "err", delErr)
		}
		return internalError("deliver code", err)
	}

	e.logger.Info(ctx, "two-factor challenge issued", "account_id", account.ID)
	return nil
}

// Complete consumes the pending code. A mismatch, an exhausted challenge or
// no pending challenge at all is ErrInvalidSession.
func (e *TwoFactorEngine) Complete(ctx context.Context, account *model.Account, code string) error {
	err := e.store.ConsumeChallenge(ctx, account.ID, code, e.cfg.MaxAttempts)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrNotFound):
		return newError(KindInvalidSession, err)
	case errors.Is(err, model.ErrAttemptsExceeded):
		e.logger.Warn(ctx, "two-factor attempts exhausted", "account_id", account.ID)
		return Translate(err)
	case errors.Is(err, model.ErrCodeMismatch):
		return Translate(err)
	default:
		return internalError("consume challenge", err)
	}
}

func generateCode(length int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[n.Int64()]
	}
	return string(out), nil
}
