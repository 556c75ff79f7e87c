package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/domain"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	"github.com/aussiebroadwan/sessionauth/pkg/cryptox"
	"github.com/aussiebroadwan/sessionauth/pkg/idx"
	"github.com/aussiebroadwan/sessionauth/pkg/jwtx"
	"github.com/aussiebroadwan/sessionauth/pkg/slogx"
)

// TokenTypeBearer is the token_type returned with every token pair.
const TokenTypeBearer = "Bearer"

// issueAttempts bounds retries when a freshly minted refresh token collides
// with an existing record.
const issueAttempts = 2

// SessionConfig holds the secrets and lifetimes NewSessionService validates.
// The two secrets must differ.
type SessionConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     string // compact grammar, e.g. "15m"
	RefreshTTL    string // compact grammar, e.g. "7d"
	Issuer        string
	BcryptCost    int
	Pepper        []byte

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// SessionService registers and authenticates users and manages the refresh
// token chains that follow from it. It keeps no state between calls.
type SessionService struct {
	users  store.Users
	tokens store.RefreshTokens

	hasher  *cryptox.Hasher
	access  *jwtx.HS256
	refresh *jwtx.HS256

	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time

	// dummyHash is verified against on unknown emails so both login
	// failures cost one bcrypt comparison.
	dummyHash string
}

// NewSessionService validates cfg and wires the service. Every returned
// error matches ErrConfiguration.
func NewSessionService(cfg SessionConfig, users store.Users, tokens store.RefreshTokens) (*SessionService, error) {
	fail := func(err error) (*SessionService, error) {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	accessTTL, err := jwtx.ParseTTL(cfg.AccessTTL)
	if err != nil {
		return fail(fmt.Errorf("access ttl: %w", err))
	}
	refreshTTL, err := jwtx.ParseTTL(cfg.RefreshTTL)
	if err != nil {
		return fail(fmt.Errorf("refresh ttl: %w", err))
	}

	if len(cfg.AccessSecret) > 0 && string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return fail(errors.New("access and refresh secrets must differ"))
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	access, err := jwtx.NewHS256(cfg.AccessSecret, cfg.Issuer, jwtx.WithClock(now))
	if err != nil {
		return fail(fmt.Errorf("access secret: %w", err))
	}
	refresh, err := jwtx.NewHS256(cfg.RefreshSecret, cfg.Issuer, jwtx.WithClock(now))
	if err != nil {
		return fail(fmt.Errorf("refresh secret: %w", err))
	}

	hasher, err := cryptox.NewHasher(cfg.BcryptCost, cfg.Pepper)
	if err != nil {
		return fail(err)
	}

	dummy, err := hasher.Hash(idx.New().String())
	if err != nil {
		return nil, fmt.Errorf("service: dummy hash: %w", err)
	}

	return &SessionService{
		users:      users,
		tokens:     tokens,
		hasher:     hasher,
		access:     access,
		refresh:    refresh,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     cfg.Issuer,
		now:        now,
		dummyHash:  dummy,
	}, nil
}

// RegisterInput is assumed shape-validated by the caller.
type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Register creates an active user with the default role and opens its first
// session.
func (s *SessionService) Register(
	ctx context.Context,
	in RegisterInput,
	dev domain.DeviceContext,
) (*domain.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrDuplicateEmail
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Roles:        []string{domain.DefaultRole},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	pair, err := s.issue(ctx, user, dev, func(rec domain.RefreshToken) error {
		return s.tokens.CreateRefreshToken(ctx, rec)
	})
	if err != nil {
		// Undo the account so the caller can retry with the same email.
		if derr := s.users.DeleteUser(ctx, user.ID); derr != nil {
			slogx.FromContext(ctx).Error("failed to remove user after issuance failure",
				"user_id", user.ID, "err", derr)
		}
		return nil, err
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", user.ID)
	return &domain.AuthResult{TokenPair: pair, User: user.Public()}, nil
}

// Login authenticates by email and password and opens a new session.
func (s *SessionService) Login(
	ctx context.Context,
	email, password string,
	dev domain.DeviceContext,
) (*domain.AuthResult, error) {
	log := slogx.FromContext(ctx)

	user, err := s.users.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_, _ = s.hasher.Verify(password, s.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		log.Error("stored password hash unreadable", "user_id", user.ID, "err", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		log.Info("login failed", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		log.Info("login refused for inactive account", "user_id", user.ID)
		return nil, ErrInactiveAccount
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		log.Warn("failed to record last login", "user_id", user.ID, "err", err)
	}
	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, password)
	}

	pair, err := s.issue(ctx, user, dev, func(rec domain.RefreshToken) error {
		return s.tokens.CreateRefreshToken(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{TokenPair: pair, User: user.Public()}, nil
}

// rehash upgrades a hash minted at an older cost. Failures are logged only.
func (s *SessionService) rehash(ctx context.Context, userID, password string) {
	log := slogx.FromContext(ctx)

	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		log.Warn("failed to upgrade password hash", "user_id", userID, "err", err)
		return
	}
	log.Info("password hash upgraded", "user_id", userID, "cost", s.hasher.Cost())
}

// Refresh exchanges a refresh token for a new pair and revokes the presented
// one. Every refusal matches ErrInvalidToken; the reason is only logged.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*domain.TokenPair, error) {
	claims, err := s.refresh.VerifyRefresh(presented)
	if err != nil {
		switch {
		case errors.Is(err, jwtx.ErrExpired):
			return nil, s.rejected(ctx, ReasonExpired, err)
		case errors.Is(err, jwtx.ErrWrongType):
			return nil, s.rejected(ctx, ReasonWrongType, err)
		default:
			return nil, s.rejected(ctx, ReasonMalformed, err)
		}
	}

	ctx = slogx.With(ctx, "user_id", claims.Subject, "jti", claims.TokenID())

	rec, err := s.tokens.GetRefreshToken(ctx, cryptox.FingerprintToken(presented), claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, s.rejected(ctx, ReasonNotFound, nil)
		}
		return nil, err
	}
	ctx = slogx.With(ctx, "token_id", rec.ID)

	if rec.Revoked {
		return nil, s.rejected(ctx, ReasonRevoked, nil)
	}
	if rec.Expired(s.now()) {
		return nil, s.rejected(ctx, ReasonRecordExpired, nil)
	}

	user, err := s.users.GetUserByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, s.rejected(ctx, ReasonUserMissing, nil)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, s.rejected(ctx, ReasonUserInactive, nil)
	}

	dev := domain.DeviceContext{UserAgent: rec.UserAgent, IPAddress: rec.IPAddress}
	pair, err := s.issue(ctx, user, dev, func(next domain.RefreshToken) error {
		return s.tokens.RotateRefreshToken(ctx, rec.ID, next)
	})
	switch {
	case errors.Is(err, store.ErrAlreadyRevoked):
		return nil, s.rejected(ctx, ReasonReplayed, nil)
	case errors.Is(err, store.ErrNotFound):
		return nil, s.rejected(ctx, ReasonNotFound, nil)
	case err != nil:
		return nil, err
	}
	return &pair, nil
}

// rejected logs a refused refresh and returns the caller-facing error.
// Revoked and replayed tokens log at warn.
func (s *SessionService) rejected(ctx context.Context, reason RejectReason, cause error) error {
	level := slog.LevelInfo
	if reason == ReasonRevoked || reason == ReasonReplayed {
		level = slog.LevelWarn
	}

	args := []any{"reason", string(reason)}
	if cause != nil {
		args = append(args, "err", cause)
	}
	slogx.FromContext(ctx).Log(ctx, level, "refresh rejected", args...)
	return reject(reason, cause)
}

// Logout revokes the caller's refresh token. It succeeds whatever state the
// token is in, store errors are logged and swallowed.
func (s *SessionService) Logout(ctx context.Context, userID, presented string) {
	if presented == "" {
		return
	}
	err := s.tokens.RevokeRefreshTokenByHash(ctx, cryptox.FingerprintToken(presented), userID)
	if err != nil {
		slogx.FromContext(ctx).Error("logout revoke failed", "user_id", userID, "err", err)
	}
}

// LogoutAll revokes every refresh token of the user. Like Logout it never
// fails towards the caller.
func (s *SessionService) LogoutAll(ctx context.Context, userID string) {
	if err := s.tokens.RevokeAllUserRefreshTokens(ctx, userID); err != nil {
		slogx.FromContext(ctx).Error("logout-all revoke failed", "user_id", userID, "err", err)
	}
}

// ChangePassword replaces the password after verifying the current one and
// ends every session of the user.
func (s *SessionService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	ok, err := s.hasher.Verify(current, user.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllUserRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("service: revoke sessions after password change: %w", err)
	}

	slogx.FromContext(ctx).Info("password changed", "user_id", userID)
	return nil
}

// Sessions lists the user's live refresh tokens, newest first.
func (s *SessionService) Sessions(ctx context.Context, userID string) ([]domain.Session, error) {
	recs, err := s.tokens.ListUserRefreshTokens(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]domain.Session, 0, len(recs))
	for _, rec := range recs {
		if rec.Active(now) {
			out = append(out, rec.Session())
		}
	}
	return out, nil
}

// Me returns the caller's profile.
func (s *SessionService) Me(ctx context.Context, userID string) (domain.PublicUser, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.PublicUser{}, ErrInvalidToken
		}
		return domain.PublicUser{}, err
	}
	return user.Public(), nil
}

// VerifyAccess checks an access token. It consults no store.
func (s *SessionService) VerifyAccess(token string) (jwtx.AccessClaims, error) {
	return s.access.VerifyAccess(token)
}

// issue mints an access/refresh pair for user and hands the refresh record
// to persist. A collision is retried with a fresh token identifier.
func (s *SessionService) issue(
	ctx context.Context,
	user domain.User,
	dev domain.DeviceContext,
	persist func(domain.RefreshToken) error,
) (domain.TokenPair, error) {
	var err error
	for attempt := range issueAttempts {
		var (
			pair domain.TokenPair
			rec  domain.RefreshToken
		)
		pair, rec, err = s.mint(user, dev)
		if err != nil {
			return domain.TokenPair{}, err
		}

		err = persist(rec)
		if err == nil {
			return pair, nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return domain.TokenPair{}, err
		}
		slogx.FromContext(ctx).Warn("refresh token collision", "attempt", attempt+1)
	}
	return domain.TokenPair{}, fmt.Errorf("service: issue refresh token: %w", err)
}

// mint signs both tokens from one truncated instant so the refresh token's
// exp claim and the record's expires_at are the same second.
func (s *SessionService) mint(user domain.User, dev domain.DeviceContext) (domain.TokenPair, domain.RefreshToken, error) {
	now := s.now().Truncate(time.Second)

	accessClaims := jwtx.NewAccessClaims(user.ID, user.Email, slices.Clone(user.Roles), s.issuer, s.accessTTL, now)
	accessToken, err := s.access.SignAccess(accessClaims)
	if err != nil {
		return domain.TokenPair{}, domain.RefreshToken{}, err
	}

	refreshClaims := jwtx.NewRefreshClaims(user.ID, s.issuer, s.refreshTTL, now)
	refreshToken, err := s.refresh.SignRefresh(refreshClaims)
	if err != nil {
		return domain.TokenPair{}, domain.RefreshToken{}, err
	}

	rec := domain.RefreshToken{
		ID:        idx.NewAt(now).String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(refreshToken),
		ExpiresAt: refreshClaims.ExpiresAt.Time,
		UserAgent: dev.UserAgent,
		IPAddress: dev.IPAddress,
		CreatedAt: now,
	}

	pair := domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(s.accessTTL / time.Second),
	}
	return pair, rec, nil
}
