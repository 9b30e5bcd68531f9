// Package auth extrai a identidade das claims assinadas e aplica as checagens
// de autorização (gate) antes dos handlers.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleHost  Role = "HOST"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool { return r == RoleHost || r == RoleAdmin }

// ErrUnauthenticated cobre qualquer falha de identidade: ausência de token,
// assinatura inválida ou claims incompletas.
var ErrUnauthenticated = errors.New("unauthenticated")

// UserContext é a identidade tipada de uma requisição. Nunca é persistida.
type UserContext struct {
	SubjectID   string
	Email       string
	Role        Role
	Permissions map[string]struct{}
	HostID      string
}

func (u UserContext) Has(perm string) bool {
	_, ok := u.Permissions[perm]
	return ok
}

func (u UserContext) IsAdmin() bool { return u.Role == RoleAdmin }

// PermissionList devolve as permissões ordenadas (útil para logs).
func (u UserContext) PermissionList() []string {
	out := make([]string, 0, len(u.Permissions))
	for p := range u.Permissions {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// PermissionSet aceita tanto um array JSON quanto uma string separada por vírgula,
// que é como alguns authorizers de gateway injetam a claim.
type PermissionSet []string

func (p *PermissionSet) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*p = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("permissions: expected array or string: %w", err)
	}
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	*p = out
	return nil
}

// Claims são as claims assinadas emitidas pela camada de autenticação.
type Claims struct {
	jwt.RegisteredClaims
	Email       string         `json:"email"`
	Role        string         `json:"role"`
	Permissions *PermissionSet `json:"permissions"`
	HostID      string         `json:"hostId,omitempty"`
}

// UserContext valida a presença de subject/email/role/permissions e monta o contexto tipado.
func (c *Claims) UserContext() (UserContext, error) {
	switch {
	case strings.TrimSpace(c.Subject) == "":
		return UserContext{}, fmt.Errorf("%w: missing subject", ErrUnauthenticated)
	case strings.TrimSpace(c.Email) == "":
		return UserContext{}, fmt.Errorf("%w: missing email", ErrUnauthenticated)
	case c.Permissions == nil:
		return UserContext{}, fmt.Errorf("%w: missing permissions", ErrUnauthenticated)
	}
	role := Role(strings.ToUpper(strings.TrimSpace(c.Role)))
	if !role.Valid() {
		return UserContext{}, fmt.Errorf("%w: invalid role %q", ErrUnauthenticated, c.Role)
	}

	perms := make(map[string]struct{}, len(*c.Permissions))
	for _, p := range *c.Permissions {
		if p = strings.TrimSpace(p); p != "" {
			perms[p] = struct{}{}
		}
	}
	return UserContext{
		SubjectID:   c.Subject,
		Email:       c.Email,
		Role:        role,
		Permissions: perms,
		HostID:      strings.TrimSpace(c.HostID),
	}, nil
}

// Extractor obtém a identidade de uma requisição.
type Extractor interface {
	Extract(r *http.Request) (UserContext, error)
}

// JWTExtractor valida tokens HS256 vindos no header Authorization.
type JWTExtractor struct {
	secret []byte
	issuer string
}

type JWTOption func(*JWTExtractor)

func WithIssuer(iss string) JWTOption {
	return func(e *JWTExtractor) { e.issuer = iss }
}

func NewJWTExtractor(secret []byte, opts ...JWTOption) *JWTExtractor {
	e := &JWTExtractor{secret: secret}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *JWTExtractor) Extract(r *http.Request) (UserContext, error) {
	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return UserContext{}, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}

	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if e.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(e.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return e.secret, nil
	}, parserOpts...)
	if err != nil {
		return UserContext{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return claims.UserContext()
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type userKey struct{}

func WithUser(ctx context.Context, u UserContext) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func UserFrom(ctx context.Context) (UserContext, bool) {
	u, ok := ctx.Value(userKey{}).(UserContext)
	return u, ok
}

// ExtractUserID devolve o subject do usuário autenticado, ou ("", false) se não houver.
func ExtractUserID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	u, ok := UserFrom(ctx)
	if !ok || u.SubjectID == "" {
		return "", false
	}
	return u.SubjectID, true
}
