// Package service contains the application services: sessions, flocks,
// devices, trust links and ambry publication.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/flocknet/flockd/internal/errs"
	"github.com/flocknet/flockd/internal/ident"
	"github.com/flocknet/flockd/internal/model"
	"github.com/flocknet/flockd/internal/repository"
)

const (
	// tokenTTL is the sliding session window: every successful validation
	// pushes the token's expiry this far into the future.
	tokenTTL = 30 * 24 * time.Hour

	// timeTopUp is the span a balance top-up sets, absolute from now.
	timeTopUp = 31 * 24 * time.Hour

	// reapEvery is the interval of the expired-token reaper.
	reapEvery = 30 * time.Second
)

// Credentials is what a fresh login/registration hands the client.
type Credentials struct {
	Token     string
	AccountID int64
	// AccountKey is set only on registration, when the key is first minted.
	AccountKey string
}

// SessionService issues and validates session tokens and manages the account
// lifecycle around them.
type SessionService interface {
	// Register creates an account with a fresh capability key and issues an
	// API-channel token.
	Register(ctx context.Context) (Credentials, error)
	// Init authenticates by account key on the API channel and issues a
	// token. Unknown keys return errs.ErrNotFound; the handler answers with
	// a decoy body so key probing learns nothing.
	Init(ctx context.Context, accountKey string) (Credentials, error)
	// Login authenticates by account key on the web channel.
	Login(ctx context.Context, accountKey string) (Credentials, error)
	// Issue mints a token for an account on a channel. Older tokens for the
	// same account/channel are superseded, not revoked.
	Issue(ctx context.Context, accountID int64, ch model.Channel) (string, error)
	// Validate checks a token on its channel, slides its expiry forward and
	// returns the authenticated context. errs.ErrUnauthorized on any miss.
	Validate(ctx context.Context, token string, ch model.Channel) (model.AuthContext, error)
	// AddTime sets the account balance to now plus the top-up span.
	AddTime(ctx context.Context, accountID int64) error
	// DeleteAccount removes the account and everything it owns.
	DeleteAccount(ctx context.Context, accountID int64) error
	// RunReaper deletes expired tokens on a fixed interval until ctx is done.
	RunReaper(ctx context.Context)
}

type SessionServiceImpl struct {
	accounts repository.AccountRepository
	log      *zap.Logger
}

// NewSessionService constructs SessionService.
func NewSessionService(accounts repository.AccountRepository, log *zap.Logger) *SessionServiceImpl {
	return &SessionServiceImpl{accounts: accounts, log: log}
}

// Register creates a new account and a first API token.
func (s *SessionServiceImpl) Register(ctx context.Context) (Credentials, error) {
	key, err := ident.AccountKey()
	if err != nil {
		return Credentials{}, err
	}
	id, err := s.accounts.Create(ctx, key)
	if err != nil {
		return Credentials{}, err
	}
	token, err := s.Issue(ctx, id, model.ChannelAPI)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Token: token, AccountID: id, AccountKey: key}, nil
}

// Init authenticates by account key on the API channel.
func (s *SessionServiceImpl) Init(ctx context.Context, accountKey string) (Credentials, error) {
	return s.loginOn(ctx, accountKey, model.ChannelAPI)
}

// Login authenticates by account key on the web channel.
func (s *SessionServiceImpl) Login(ctx context.Context, accountKey string) (Credentials, error) {
	return s.loginOn(ctx, accountKey, model.ChannelWeb)
}

func (s *SessionServiceImpl) loginOn(ctx context.Context, accountKey string, ch model.Channel) (Credentials, error) {
	if !ident.ValidAccountKey(accountKey) {
		return Credentials{}, errs.ErrNotFound
	}
	a, err := s.accounts.GetByKey(ctx, accountKey)
	if err != nil {
		return Credentials{}, err
	}
	token, err := s.Issue(ctx, a.ID, ch)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Token: token, AccountID: a.ID}, nil
}

// Issue mints a fresh random token with expiry now plus the sliding window.
func (s *SessionServiceImpl) Issue(ctx context.Context, accountID int64, ch model.Channel) (string, error) {
	value, err := ident.Token()
	if err != nil {
		return "", err
	}
	t := &model.Token{
		Value:   value,
		Account: accountID,
		Channel: ch,
		Expires: time.Now().Add(tokenTTL).Unix(),
	}
	if err := s.accounts.CreateToken(ctx, t); err != nil {
		return "", err
	}
	return value, nil
}

// Validate authenticates a token on its channel. The expiry extension and the
// account snapshot happen in one repository round trip.
func (s *SessionServiceImpl) Validate(ctx context.Context, token string, ch model.Channel) (model.AuthContext, error) {
	if !ident.ValidToken(token) {
		return model.AuthContext{}, errs.ErrUnauthorized
	}
	now := time.Now()
	a, err := s.accounts.TouchToken(ctx, token, ch.IsWeb(), now.Add(tokenTTL).Unix())
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.AuthContext{}, errs.ErrUnauthorized
		}
		return model.AuthContext{}, err
	}

	auth := model.AuthContext{
		AccountID:  a.ID,
		AccountKey: a.Key,
		FlocksMax:  a.FlocksMax,
		Channel:    ch,
	}
	if remaining := a.TimeLeft - now.Unix(); remaining > 0 {
		auth.TimeLeft = remaining
	} else {
		auth.Lapsed = true
	}
	return auth, nil
}

// AddTime sets the account balance to an absolute epoch, now plus the top-up
// span (not additive).
func (s *SessionServiceImpl) AddTime(ctx context.Context, accountID int64) error {
	return s.accounts.SetTimeLeft(ctx, accountID, time.Now().Add(timeTopUp).Unix())
}

// DeleteAccount removes the account; the schema cascades flocks, devices,
// tokens and trust links.
func (s *SessionServiceImpl) DeleteAccount(ctx context.Context, accountID int64) error {
	return s.accounts.Delete(ctx, accountID)
}

// RunReaper deletes expired tokens every interval. A token may still validate
// in the instant before its row goes away; that window is accepted.
func (s *SessionServiceImpl) RunReaper(ctx context.Context) {
	t := time.NewTicker(reapEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.accounts.DeleteExpiredTokens(ctx)
			if err != nil {
				s.log.Warn("token reap failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("expired tokens reaped", zap.Int64("count", n))
			}
		}
	}
}
