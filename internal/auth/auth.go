// Package auth проверяет токены доступа и кладёт личность вызывающего в контекст запроса.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/jwtauth/v5"

	"github.com/UkralStul/blog-service/internal/domain"
)

// CookieName - cookie, из которой берётся токен, если нет заголовка Authorization.
const CookieName = "token"

type ctxKey string

const identityKey = ctxKey("identity")

// Users заводит пользователя по данным токена.
type Users interface {
	EnsureUser(ctx context.Context, user *domain.User) (*domain.User, error)
}

// FailFunc пишет ответ с ошибкой.
type FailFunc func(w http.ResponseWriter, r *http.Request, err error)

// Authenticator выпускает и проверяет HS256 токены.
type Authenticator struct {
	tokens *jwtauth.JWTAuth
	users  Users
	fail   FailFunc
}

// New создает аутентификатор с общим секретом.
func New(secret string, users Users, fail FailFunc) *Authenticator {
	return &Authenticator{
		tokens: jwtauth.New("HS256", []byte(secret), nil),
		users:  users,
		fail:   fail,
	}
}

// Verifier разбирает токен из заголовка или cookie. Сам по себе запрос не отклоняет.
func (a *Authenticator) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verify(a.tokens, jwtauth.TokenFromHeader, tokenFromCookie)
}

func tokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Require пропускает только аутентифицированных пользователей с подтверждённой почтой
// и одной из перечисленных ролей.
func (a *Authenticator) Require(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, claims, err := jwtauth.FromContext(ctx)
			if err != nil || token == nil {
				a.fail(w, r, domain.E(domain.ErrUnauthenticated, "Unauthorized"))
				return
			}

			identity, err := IdentityFromClaims(claims)
			if err != nil {
				a.fail(w, r, err)
				return
			}
			if !identity.EmailVerified {
				a.fail(w, r, domain.E(domain.ErrForbidden, "Email not verified"))
				return
			}
			if !identity.HasRole(roles...) {
				a.fail(w, r, domain.E(domain.ErrForbidden, "Forbidden: Insufficient permissions"))
				return
			}

			user, err := a.users.EnsureUser(ctx, identity.User())
			if err != nil {
				a.fail(w, r, err)
				return
			}
			if user.Status == domain.UserBlocked {
				a.fail(w, r, domain.E(domain.ErrForbidden, "User is blocked"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

// Issue выпускает токен для личности на срок ttl.
func (a *Authenticator) Issue(identity *domain.Identity, ttl time.Duration) (string, error) {
	claims := map[string]interface{}{
		"sub":           identity.ID,
		"email":         identity.Email,
		"name":          identity.Name,
		"role":          string(identity.Role),
		"emailVerified": identity.EmailVerified,
	}
	now := time.Now()
	jwtauth.SetIssuedAt(claims, now)
	jwtauth.SetExpiry(claims, now.Add(ttl))

	_, str, err := a.tokens.Encode(claims)
	return str, err
}

// IdentityFromClaims собирает личность из claims. Без sub или email токен не годится.
func IdentityFromClaims(claims map[string]interface{}) (*domain.Identity, error) {
	id, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if id == "" || email == "" {
		return nil, domain.E(domain.ErrUnauthenticated, "Unauthorized")
	}

	name, _ := claims["name"].(string)
	verified, _ := claims["emailVerified"].(bool)

	rawRole, _ := claims["role"].(string)
	role, ok := domain.ParseRole(rawRole)
	if !ok {
		// неизвестная роль не совпадёт ни с одной разрешённой
		role = domain.Role(strings.ToUpper(rawRole))
	}

	return &domain.Identity{
		ID:            id,
		Email:         email,
		Name:          name,
		Role:          role,
		EmailVerified: verified,
	}, nil
}

// WithIdentity кладёт личность в контекст.
func WithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// FromContext возвращает личность или nil.
func FromContext(ctx context.Context) *domain.Identity {
	identity, _ := ctx.Value(identityKey).(*domain.Identity)
	return identity
}
