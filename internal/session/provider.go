package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgcrypto "github.com/and161185/pinboard/internal/crypto"
	"github.com/and161185/pinboard/internal/errs"
	"github.com/and161185/pinboard/internal/limiter"
	"github.com/and161185/pinboard/internal/model"
	"github.com/and161185/pinboard/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Accessor is the read side used by pages and services.
type Accessor interface {
	// Current returns the session for token, or nil when the token is missing, invalid or revoked.
	// A non-nil error means the check itself failed and the caller must not treat the user as signed in.
	Current(ctx context.Context, token string) (*model.Session, error)
	// Subscribe registers an auth event handler.
	Subscribe(fn Handler) func()
}

// SignUpRequest is the registration form.
type SignUpRequest struct {
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=6"`
	Username  string `validate:"omitempty,min=2,max=40,alphanumunicode"`
	FirstName string `validate:"max=80"`
	LastName  string `validate:"max=80"`
	// Redirect is the local path to land on after sign-up.
	Redirect string
}

// Config tunes token issuing.
type Config struct {
	SignKey       []byte
	AccessTTL     time.Duration
	RefreshWindow time.Duration // Refresh reissues tokens expiring within this window
}

// Provider is the identity provider: it authenticates, issues HS256 tokens and emits auth events.
type Provider struct {
	identities repository.IdentityRepository
	lim        limiter.Limiter
	cfg        Config
	log        *zap.Logger
	validate   *validator.Validate
	hub        Hub
	now        func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry
	seen    map[string]time.Time // jti -> token expiry
}

var _ Accessor = (*Provider)(nil)

// NewProvider constructs a Provider.
func NewProvider(ids repository.IdentityRepository, lim limiter.Limiter, cfg Config, log *zap.Logger) *Provider {
	if lim == nil {
		lim = limiter.Nop{}
	}
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = cfg.AccessTTL / 4
	}
	return &Provider{
		identities: ids,
		lim:        lim,
		cfg:        cfg,
		log:        log,
		validate:   validator.New(),
		now:        time.Now,
		revoked:    make(map[string]time.Time),
		seen:       make(map[string]time.Time),
	}
}

// Subscribe registers fn for every subsequent auth event.
func (p *Provider) Subscribe(fn Handler) func() { return p.hub.Subscribe(fn) }

// SignUp creates the identity and its users row, then signs the new user in.
func (p *Provider) SignUp(ctx context.Context, req SignUpRequest) (*model.Session, error) {
	req.Email = normalizeEmail(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if err := p.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrValidation, describe(err))
	}
	if req.Username == "" {
		req.Username = usernameFromEmail(req.Email)
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	hash, salt, err := pkgcrypto.NewCredential(req.Password)
	if err != nil {
		return nil, err
	}
	ident := &model.Identity{ID: uid, Email: req.Email, PwdHash: hash, Salt: salt}
	user := &model.User{ID: uid, Username: req.Username, FirstName: req.FirstName, LastName: req.LastName}
	if err := p.identities.CreateWithUser(ctx, ident, user); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: email or username already registered", errs.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("%w: sign up: %v", errs.ErrAuth, err)
	}
	p.log.Info("user signed up", zap.String("user_id", uid.String()))
	return p.open(ident, SignedIn)
}

// SignIn authenticates with rate limiting by (email, client address).
func (p *Provider) SignIn(ctx context.Context, email, password, ip string) (*model.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", errs.ErrValidation)
	}
	ipHash := limiter.HashIP(ip)

	allowed, wait, err := p.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return nil, fmt.Errorf("%w: limiter: %v", errs.ErrAuth, err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: retry in %s", errs.ErrRateLimited, wait.Round(time.Second))
	}

	ident, err := p.identities.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("%w: lookup: %v", errs.ErrAuth, err)
	}
	if ident == nil || !pkgcrypto.VerifyPassword([]byte(password), ident.Salt, ident.PwdHash) {
		if blocked, _, ferr := p.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return nil, errs.ErrRateLimited
		}
		return nil, fmt.Errorf("%w: invalid email or password", errs.ErrUnauthorized)
	}

	if err := p.lim.Success(ctx, email, ipHash); err != nil {
		p.log.Warn("limiter reset failed", zap.Error(err))
	}
	return p.open(ident, SignedIn)
}

// SignOut revokes the session token and emits SignedOut.
func (p *Provider) SignOut(_ context.Context, s *model.Session) error {
	if s == nil {
		return nil
	}
	p.mu.Lock()
	p.revoked[s.TokenID] = s.ExpiresAt
	delete(p.seen, s.TokenID)
	p.mu.Unlock()

	p.hub.Publish(Event{Type: SignedOut, Session: s})
	return nil
}

// Refresh reissues the token when it expires within the refresh window; otherwise s is returned unchanged.
func (p *Provider) Refresh(ctx context.Context, s *model.Session) (*model.Session, error) {
	if s == nil {
		return nil, errs.ErrUnauthorized
	}
	if s.ExpiresAt.Sub(p.now()) > p.cfg.RefreshWindow {
		return s, nil
	}
	ident, err := p.identities.GetByID(ctx, s.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: refresh: %v", errs.ErrAuth, err)
	}
	p.mu.Lock()
	p.revoked[s.TokenID] = s.ExpiresAt
	p.mu.Unlock()
	return p.open(ident, TokenRefreshed)
}

// Current verifies token and confirms the identity still exists.
func (p *Provider) Current(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}
	claims, ok := p.parse(token)
	if !ok {
		return nil, nil
	}
	uid, err := uuid.FromString(claims.Subject)
	if err != nil {
		return nil, nil
	}

	p.mu.Lock()
	_, isRevoked := p.revoked[claims.ID]
	p.mu.Unlock()
	if isRevoked {
		return nil, nil
	}

	ident, err := p.identities.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get user: %v", errs.ErrAuth, err)
	}

	s := &model.Session{
		AccessToken: token,
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
		UserID:      ident.ID,
		Email:       ident.Email,
	}
	if p.markSeen(s) {
		p.hub.Publish(Event{Type: InitialSession, Session: s})
	}
	return s, nil
}

func (p *Provider) open(ident *model.Identity, ev EventType) (*model.Session, error) {
	s, err := p.issue(ident)
	if err != nil {
		return nil, err
	}
	p.markSeen(s)
	p.hub.Publish(Event{Type: ev, Session: s})
	return s, nil
}

// issue creates a signed HS256 JWT for the identity.
func (p *Provider) issue(ident *model.Identity) (*model.Session, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := p.now()
	exp := now.Add(p.cfg.AccessTTL)
	claims := jwt.RegisteredClaims{
		ID:        jti.String(),
		Subject:   ident.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.cfg.SignKey)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &model.Session{
		AccessToken: signed,
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
		UserID:      ident.ID,
		Email:       ident.Email,
	}, nil
}

func (p *Provider) parse(token string) (*jwt.RegisteredClaims, bool) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return p.cfg.SignKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !tok.Valid || claims.ID == "" {
		return nil, false
	}
	return claims, true
}

// markSeen records the token id and reports whether it was new. Expired entries are pruned.
func (p *Provider) markSeen(s *model.Session) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	for id, exp := range p.seen {
		if exp.Before(now) {
			delete(p.seen, id)
		}
	}
	for id, exp := range p.revoked {
		if exp.Before(now) {
			delete(p.revoked, id)
		}
	}
	if _, ok := p.seen[s.TokenID]; ok {
		return false
	}
	p.seen[s.TokenID] = s.ExpiresAt
	return true
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, strings.ToLower(fe.Field())+" is required")
		case "email":
			msgs = append(msgs, "email is not valid")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", strings.ToLower(fe.Field()), fe.Param()))
		default:
			msgs = append(msgs, strings.ToLower(fe.Field())+" is not valid")
		}
	}
	return strings.Join(msgs, "; ")
}
