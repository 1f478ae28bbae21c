package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/agency/internal/auth"
)

type mockMembers struct {
	mock.Mock
}

func (m *mockMembers) IsMember(ctx context.Context, organizationID, userID string) (bool, error) {
	args := m.Called(ctx, organizationID, userID)
	return args.Bool(0), args.Error(1)
}

var authEpoch = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestTokens() (*auth.Tokens, *testclock.Clock) {
	clk := testclock.NewClock(authEpoch)
	return auth.NewTokens("test-secret", "agency", clk), clk
}

// principalEcho writes the principal back so tests can see what Auth injected.
func principalEcho(t *testing.T, got **Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = GetPrincipal(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_MissingToken(t *testing.T) {
	tokens, _ := newTestTokens()
	members := &mockMembers{}
	var p *Principal

	rec := httptest.NewRecorder()
	Auth(tokens, members)(principalEcho(t, &p)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, p)
	members.AssertNotCalled(t, "IsMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuth_NonBearerScheme(t *testing.T) {
	tokens, _ := newTestTokens()
	var p *Principal

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	Auth(tokens, &mockMembers{})(principalEcho(t, &p)).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_ExpiredToken(t *testing.T) {
	tokens, clk := newTestTokens()
	token, err := tokens.Issue("user-1", "org-1", time.Minute)
	require.NoError(t, err)
	clk.Advance(2 * time.Minute)
	var p *Principal

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Auth(tokens, &mockMembers{})(principalEcho(t, &p)).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}

func TestAuth_TokenOrganization(t *testing.T) {
	tokens, _ := newTestTokens()
	token, err := tokens.Issue("user-1", "org-1", time.Hour)
	require.NoError(t, err)
	members := &mockMembers{}
	members.On("IsMember", mock.Anything, "org-1", "user-1").Return(true, nil)
	var p *Principal

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Auth(tokens, members)(principalEcho(t, &p)).ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, p)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "org-1", p.OrganizationID)
}

func TestAuth_HeaderOverridesOrganization(t *testing.T) {
	tokens, _ := newTestTokens()
	token, err := tokens.Issue("user-1", "org-1", time.Hour)
	require.NoError(t, err)
	members := &mockMembers{}
	members.On("IsMember", mock.Anything, "org-2", "user-1").Return(true, nil)
	var p *Principal

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	r.Header.Set(OrganizationHeader, "org-2")
	rec := httptest.NewRecorder()
	Auth(tokens, members)(principalEcho(t, &p)).ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "org-2", p.OrganizationID)
}

func TestAuth_NotMember(t *testing.T) {
	tokens, _ := newTestTokens()
	token, err := tokens.Issue("user-1", "org-1", time.Hour)
	require.NoError(t, err)
	members := &mockMembers{}
	members.On("IsMember", mock.Anything, "org-9", "user-1").Return(false, nil)
	var p *Principal

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	r.Header.Set(OrganizationHeader, "org-9")
	rec := httptest.NewRecorder()
	Auth(tokens, members)(principalEcho(t, &p)).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, p)
}

func TestAuth_NoOrganization(t *testing.T) {
	tokens, _ := newTestTokens()
	token, err := tokens.Issue("user-1", "", time.Hour)
	require.NoError(t, err)
	var p *Principal

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Auth(tokens, &mockMembers{})(principalEcho(t, &p)).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuth_MembershipLookupFails(t *testing.T) {
	tokens, _ := newTestTokens()
	token, err := tokens.Issue("user-1", "org-1", time.Hour)
	require.NoError(t, err)
	members := &mockMembers{}
	members.On("IsMember", mock.Anything, "org-1", "user-1").Return(false, errors.New("db down"))
	var p *Principal

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Auth(tokens, members)(principalEcho(t, &p)).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestGetPrincipal_Missing(t *testing.T) {
	assert.Nil(t, GetPrincipal(context.Background()))
}
