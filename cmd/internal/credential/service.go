// Package credential implements registration and login verification on top of
// an identity.Store and a password.Hasher.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"warden/cmd/identity"
	"warden/cmd/internal/observability/metrics"
	"warden/cmd/security/password"

	"github.com/go-playground/validator/v10"
)

// dummyPassword feeds the hash that unknown-user logins are verified against.
const dummyPassword = "warden-dummy-password-for-timing"

// RegisterInput is the register request. Both fields must be non-empty.
type RegisterInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// VerifyInput is the login request. Both fields must be non-empty.
type VerifyInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// RegisterResult describes a newly stored credential.
type RegisterResult struct {
	Username  string
	CreatedAt time.Time
}

// rehashChecker is implemented by password.Config.
type rehashChecker interface {
	NeedsRehash(encodedHash string) bool
}

// dummyHasher is implemented by password.Config; it hashes without applying Policy.
type dummyHasher interface {
	DummyHash() (string, error)
}

// Service registers and verifies credentials. It is safe for concurrent use.
type Service struct {
	store    identity.Store
	hasher   password.Hasher
	validate *validator.Validate
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	dummyHash string
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards output.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics records outcomes and hashing durations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service. It fails if the hasher cannot produce the hash that
// unknown-user logins are verified against.
func New(store identity.Store, hasher password.Hasher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("credential: nil store")
	}
	if hasher == nil {
		return nil, errors.New("credential: nil hasher")
	}

	s := &Service{
		store:    store,
		hasher:   hasher,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      slog.New(slog.DiscardHandler),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	var err error
	if dh, ok := hasher.(dummyHasher); ok {
		s.dummyHash, err = dh.DummyHash()
	} else {
		s.dummyHash, err = hasher.Hash(dummyPassword)
	}
	if err != nil {
		return nil, fmt.Errorf("credential: dummy hash: %w", err)
	}
	return s, nil
}

// Register stores a new credential for in.Username.
//
// Exactly one of any number of concurrent registrations for the same username succeeds;
// the rest fail with ErrDuplicateUser.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	const op = "credential.Register"

	if err := s.validate.StructCtx(ctx, in); err != nil {
		s.metrics.Registration(metrics.ResultValidation)
		return RegisterResult{}, newError(op, ErrValidation, err)
	}

	_, err := s.store.FindByUsername(ctx, in.Username)
	switch {
	case err == nil:
		s.metrics.Registration(metrics.ResultDuplicate)
		return RegisterResult{}, newError(op, ErrDuplicateUser, nil)
	case identity.IsNotFound(err):
	default:
		return RegisterResult{}, s.storeFailure(ctx, op, "credential.register.fail", err)
	}

	start := time.Now()
	hash, err := s.hasher.Hash(in.Password)
	s.metrics.ObserveHash("hash", time.Since(start))
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
			s.metrics.Registration(metrics.ResultValidation)
			return RegisterResult{}, newError(op, ErrValidation, err)
		}
		s.log.ErrorContext(ctx, "credential.register.fail", "stage", "hash", "err", err)
		s.metrics.Registration(metrics.ResultInternal)
		return RegisterResult{}, newError(op, ErrInternal, err)
	}

	c := identity.Credential{
		Username:     in.Username,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.store.Insert(ctx, c); err != nil {
		if identity.IsConflict(err) {
			s.metrics.Registration(metrics.ResultDuplicate)
			return RegisterResult{}, newError(op, ErrDuplicateUser, err)
		}
		return RegisterResult{}, s.storeFailure(ctx, op, "credential.register.fail", err)
	}

	s.metrics.Registration(metrics.ResultSuccess)
	return RegisterResult{Username: c.Username, CreatedAt: c.CreatedAt}, nil
}

// Verify checks in.Password against the stored credential for in.Username.
//
// An unknown username and a wrong password both return ErrInvalidCredentials after
// one password verification each.
func (s *Service) Verify(ctx context.Context, in VerifyInput) error {
	const op = "credential.Verify"

	if err := s.validate.StructCtx(ctx, in); err != nil {
		s.metrics.Login(metrics.ResultValidation)
		return newError(op, ErrValidation, err)
	}

	c, err := s.store.FindByUsername(ctx, in.Username)
	if err != nil {
		if identity.IsNotFound(err) {
			s.dummyVerify(in.Password)
			s.metrics.Login(metrics.ResultInvalidCredentials)
			return &Error{Op: op, Kind: ErrInvalidCredentials, Reason: ReasonNotFound}
		}
		return s.storeFailure(ctx, op, "credential.login.fail", err)
	}

	start := time.Now()
	ok, err := s.hasher.Verify(in.Password, c.PasswordHash)
	s.metrics.ObserveHash("verify", time.Since(start))
	if err != nil {
		if !errors.Is(err, password.ErrInvalidHash) {
			s.log.ErrorContext(ctx, "credential.login.fail", "stage", "verify", "err", err)
			s.metrics.Login(metrics.ResultInternal)
			return newError(op, ErrInternal, err)
		}
		s.log.WarnContext(ctx, "credential.hash.malformed", "username", c.Username)
		ok = false
	}
	if !ok {
		s.metrics.Login(metrics.ResultInvalidCredentials)
		return &Error{Op: op, Kind: ErrInvalidCredentials, Reason: ReasonBadPassword, Err: err}
	}

	if rc, isRC := s.hasher.(rehashChecker); isRC && rc.NeedsRehash(c.PasswordHash) {
		s.log.InfoContext(ctx, "credential.rehash.needed", "username", c.Username)
	}
	s.metrics.Login(metrics.ResultSuccess)
	return nil
}

// storeFailure classifies an unexpected store error, logs it, and counts it.
func (s *Service) storeFailure(ctx context.Context, op, event string, err error) error {
	count := s.metrics.Registration
	if op == "credential.Verify" {
		count = s.metrics.Login
	}

	if identity.IsUnavailable(err) {
		s.log.ErrorContext(ctx, event, "stage", "store", "reason", "unavailable", "err", err)
		count(metrics.ResultUnavailable)
		return newError(op, ErrStoreUnavailable, err)
	}
	s.log.ErrorContext(ctx, event, "stage", "store", "err", err)
	count(metrics.ResultInternal)
	return newError(op, ErrInternal, err)
}

// dummyVerify spends one verification on a hash that cannot match.
func (s *Service) dummyVerify(plain string) {
	start := time.Now()
	_, _ = s.hasher.Verify(plain, s.dummyHash)
	s.metrics.ObserveHash("verify", time.Since(start))
}
