package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/agency/internal/api/response"
	"github.com/edvin/agency/internal/auth"
)

type contextKey string

const principalKey contextKey = "principal"

// OrganizationHeader selects the organization a request acts on when the
// token's default organization is not the target.
const OrganizationHeader = "X-Organization-ID"

// Principal is the authenticated user and the organization the request is
// scoped to.
type Principal struct {
	UserID         string
	OrganizationID string
}

// MembershipChecker reports whether a user belongs to an organization.
type MembershipChecker interface {
	IsMember(ctx context.Context, organizationID, userID string) (bool, error)
}

// Auth returns middleware that validates JWT bearer tokens, resolves the
// target organization and verifies membership before injecting a
// Principal into the context.
func Auth(tokens *auth.Tokens, members MembershipChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}

			orgID := r.Header.Get(OrganizationHeader)
			if orgID == "" {
				orgID = claims.Org
			}
			if orgID == "" {
				response.WriteError(w, http.StatusBadRequest, "missing organization")
				return
			}

			ok, err := members.IsMember(r.Context(), orgID, claims.Sub)
			if err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Str("organization_id", orgID).Msg("membership check failed")
				response.WriteError(w, http.StatusInternalServerError, "membership check failed")
				return
			}
			if !ok {
				response.WriteError(w, http.StatusForbidden, "not a member of this organization")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, &Principal{UserID: claims.Sub, OrganizationID: orgID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal extracts the authenticated principal from the request context.
func GetPrincipal(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	token := strings.TrimPrefix(h, "Bearer ")
	if token == h {
		return ""
	}
	return strings.TrimSpace(token)
}
