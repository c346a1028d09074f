package handler

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"campusvoice/backend/internal/apperr"
	"campusvoice/backend/internal/models"
	"campusvoice/backend/internal/storage"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer       = "campusvoice-service"
	minPasswordLength = 8
	principalKey      = "principal"
)

// Claims is the JWT payload: the user id as subject plus the role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{Secret: []byte(secret), TTL: ttl, Now: time.Now}
}

// Issue генерує JWT для користувача
func (t *Tokens) Issue(user *models.User) (string, error) {
	now := t.Now()
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.Secret)
}

// Parse validates the signature, issuer and expiry and returns the claims.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return t.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.Now),
	)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	if claims.Subject == "" {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	return claims, nil
}

// authenticate resolves a raw token to the current state of its user, so
// deactivation and role changes apply to tokens already issued.
func (h *Handler) authenticate(c *gin.Context, raw string) (*models.User, error) {
	claims, err := h.Tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	user, err := h.Users.GetUserByID(c.Request.Context(), claims.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Unauthorized("user no longer exists")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized("account is disabled")
	}
	return user, nil
}

// AuthRequired rejects requests without a valid bearer token.
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || raw == "" {
			h.fail(c, apperr.Unauthorized("authorization token missing"))
			return
		}
		user, err := h.authenticate(c, raw)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Set(principalKey, models.Principal{ID: user.ID, Role: user.Role})
		c.Next()
	}
}

// AdminOnly must run after AuthRequired.
func (h *Handler) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actor(c).IsAdmin() {
			h.fail(c, apperr.Forbidden("admin access required"))
			return
		}
		c.Next()
	}
}

// optionalActor identifies the caller on public routes. A missing or bad
// token yields the zero Principal instead of an error.
func (h *Handler) optionalActor(c *gin.Context) models.Principal {
	raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return models.Principal{}
	}
	user, err := h.authenticate(c, raw)
	if err != nil {
		return models.Principal{}
	}
	return models.Principal{ID: user.ID, Role: user.Role}
}

func actor(c *gin.Context) models.Principal {
	p, _ := c.Get(principalKey)
	principal, _ := p.(models.Principal)
	return principal
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates a student account and signs it in.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if _, err := mail.ParseAddress(req.Email); err != nil {
		h.fail(c, apperr.InvalidInput("a valid email is required"))
		return
	}
	if req.Name == "" {
		h.fail(c, apperr.InvalidInput("name is required"))
		return
	}
	if len(req.Password) < minPasswordLength {
		h.fail(c, apperr.InvalidInput("password must be at least %d characters", minPasswordLength))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.fail(c, err)
		return
	}
	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		IsActive:     true,
	}
	if err := h.Users.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			err = apperr.Conflict("email is already registered")
		}
		h.fail(c, err)
		return
	}

	h.signIn(c, http.StatusCreated, user)
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.Users.GetUserByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, storage.ErrNotFound) {
		h.fail(c, apperr.Unauthorized("invalid email or password"))
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		h.fail(c, apperr.Unauthorized("invalid email or password"))
		return
	}
	if !user.IsActive {
		h.fail(c, apperr.Unauthorized("account is disabled"))
		return
	}

	h.signIn(c, http.StatusOK, user)
}

func (h *Handler) signIn(c *gin.Context, status int, user *models.User) {
	token, err := h.Tokens.Issue(user)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, status, authResponse{Token: token, User: user})
}

func (h *Handler) Me(c *gin.Context) {
	user, err := h.Users.GetUserByID(c.Request.Context(), actor(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}
