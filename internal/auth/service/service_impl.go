package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/auth/domain"
	"github.com/smallbiznis/orderdesk/internal/auth/password"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/validation"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	tokenBytes = 32

	msgInvalidUsername = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	msgInvalidEmail    = "Enter a valid email address."
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

type Params struct {
	fx.In

	Log       *zap.Logger
	Repo      domain.Repository
	TokenRepo domain.TokenRepository
	GenID     *snowflake.Node
	Clock     clock.Clock
	Config    config.Config

	PasswordParams *password.Params `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	repo       domain.Repository
	tokenRepo  domain.TokenRepository
	genID      *snowflake.Node
	clock      clock.Clock
	accessTTL  time.Duration
	refreshTTL time.Duration
	hashParams password.Params
}

func New(p Params) domain.Service {
	hashParams := password.DefaultParams
	if p.PasswordParams != nil {
		hashParams = *p.PasswordParams
	}
	accessTTL := p.Config.Auth.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = 5 * time.Minute
	}
	refreshTTL := p.Config.Auth.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 24 * time.Hour
	}

	return &Service{
		log:        p.Log.Named("auth.service"),
		repo:       p.Repo,
		tokenRepo:  p.TokenRepo,
		genID:      p.GenID,
		clock:      p.Clock,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		hashParams: hashParams,
	}
}

func (s *Service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error) {
	errs := validation.Errors{}

	username := trimmed(req.Username)
	if errs.RequiredString("username", username, domain.UsernameMaxLength) {
		if !usernamePattern.MatchString(*username) {
			errs.Add("username", msgInvalidUsername)
		} else if _, err := s.repo.FindByUsername(ctx, *username); err == nil {
			errs.Add("username", domain.MsgUsernameTaken)
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
	}

	// passwords are not trimmed
	errs.RequiredString("password", req.Password, domain.PasswordMaxLength)

	email := ""
	if req.Email != nil {
		email = strings.TrimSpace(*req.Email)
	}
	if email != "" {
		normalized, err := normalizeEmail(email)
		switch {
		case len(email) > domain.EmailMaxLength:
			errs.Add("email", validation.MaxLength(domain.EmailMaxLength))
		case err != nil:
			errs.Add("email", msgInvalidEmail)
		default:
			email = normalized
		}
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}

	hashed, err := password.HashWith(s.hashParams, *req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Username:     *username,
		Email:        email,
		PasswordHash: hashed,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, validation.Errors{"username": {domain.MsgUsernameTaken}}
		}
		return nil, err
	}

	s.log.Info("user signed up", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *Service) ObtainPair(ctx context.Context, req domain.ObtainPairRequest) (*domain.TokenPair, error) {
	errs := validation.Errors{}
	errs.RequiredString("username", trimmed(req.Username), 0)
	errs.RequiredString("password", req.Password, 0)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(*req.Username))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(*req.Password, user.PasswordHash) || !user.IsActive {
		return nil, domain.ErrInvalidCredentials
	}

	access, err := s.issue(ctx, user.ID, domain.TokenKindAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issue(ctx, user.ID, domain.TokenKindRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken: domain.AccessToken{
			Access:    access.raw,
			ExpiresAt: access.expiresAt,
		},
		Refresh:          refresh.raw,
		RefreshExpiresAt: refresh.expiresAt,
	}, nil
}

func (s *Service) Refresh(ctx context.Context, rawRefresh string) (*domain.AccessToken, error) {
	token, err := s.lookup(ctx, rawRefresh, domain.TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.activeUser(ctx, token.UserID)
	if err != nil {
		return nil, err
	}

	access, err := s.issue(ctx, user.ID, domain.TokenKindAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &domain.AccessToken{Access: access.raw, ExpiresAt: access.expiresAt}, nil
}

func (s *Service) Authenticate(ctx context.Context, rawAccess string) (*domain.User, error) {
	token, err := s.lookup(ctx, rawAccess, domain.TokenKindAccess)
	if err != nil {
		return nil, err
	}
	return s.activeUser(ctx, token.UserID)
}

type issuedToken struct {
	raw       string
	expiresAt time.Time
}

func (s *Service) issue(ctx context.Context, userID snowflake.ID, kind domain.TokenKind, ttl time.Duration) (issuedToken, error) {
	raw, err := newToken()
	if err != nil {
		return issuedToken{}, err
	}

	now := s.clock.Now()
	token := &domain.Token{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Kind:      kind,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.tokenRepo.CreateToken(ctx, token); err != nil {
		return issuedToken{}, err
	}
	return issuedToken{raw: raw, expiresAt: token.ExpiresAt}, nil
}

func (s *Service) lookup(ctx context.Context, raw string, kind domain.TokenKind) (*domain.Token, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrInvalidToken
	}

	token, err := s.tokenRepo.GetTokenByHash(ctx, hashToken(raw))
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	if token.Kind != kind {
		return nil, domain.ErrInvalidToken
	}
	if token.RevokedAt != nil {
		return nil, domain.ErrTokenRevoked
	}
	if !s.clock.Now().Before(token.ExpiresAt) {
		return nil, domain.ErrTokenExpired
	}
	return token, nil
}

func (s *Service) activeUser(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	return user, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", err
	}
	if addr.Address != raw {
		return "", errors.New("display names are not accepted")
	}
	return addr.Address, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}
