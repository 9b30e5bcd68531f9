package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return tok
}

func requestWithToken(tok string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if tok != "" {
		r.Header.Set("Authorization", "Bearer "+tok)
	}
	return r
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":         "admin-1",
		"email":       "ops@example.com",
		"role":        "ADMIN",
		"permissions": []string{PermKYCApprove, PermPlanManage},
		"exp":         time.Now().Add(time.Hour).Unix(),
	}
}

func TestJWTExtractor_ValidToken(t *testing.T) {
	ex := NewJWTExtractor(testSecret)
	u, err := ex.Extract(requestWithToken(signToken(t, validClaims())))
	require.NoError(t, err)
	require.Equal(t, "admin-1", u.SubjectID)
	require.Equal(t, RoleAdmin, u.Role)
	require.True(t, u.Has(PermKYCApprove))
	require.False(t, u.Has(PermListingSuspend))
}

func TestJWTExtractor_PermissionsAsCommaString(t *testing.T) {
	c := validClaims()
	c["permissions"] = "ADMIN_KYC_VIEW, ADMIN_LISTING_VIEW"
	u, err := NewJWTExtractor(testSecret).Extract(requestWithToken(signToken(t, c)))
	require.NoError(t, err)
	require.Equal(t, []string{PermKYCView, PermListingView}, u.PermissionList())
}

func TestJWTExtractor_EmptyPermissionListIsValid(t *testing.T) {
	c := validClaims()
	c["permissions"] = []string{}
	u, err := NewJWTExtractor(testSecret).Extract(requestWithToken(signToken(t, c)))
	require.NoError(t, err)
	require.Empty(t, u.Permissions)
}

func TestJWTExtractor_RejectsMissingClaims(t *testing.T) {
	for _, field := range []string{"sub", "email", "role", "permissions"} {
		t.Run(field, func(t *testing.T) {
			c := validClaims()
			delete(c, field)
			_, err := NewJWTExtractor(testSecret).Extract(requestWithToken(signToken(t, c)))
			require.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestJWTExtractor_RejectsUnknownRole(t *testing.T) {
	c := validClaims()
	c["role"] = "GUEST"
	_, err := NewJWTExtractor(testSecret).Extract(requestWithToken(signToken(t, c)))
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestJWTExtractor_RejectsBadSignatureAndExpiry(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("other"))
	require.NoError(t, err)
	_, err = NewJWTExtractor(testSecret).Extract(requestWithToken(tok))
	require.ErrorIs(t, err, ErrUnauthenticated)

	c := validClaims()
	c["exp"] = time.Now().Add(-time.Minute).Unix()
	_, err = NewJWTExtractor(testSecret).Extract(requestWithToken(signToken(t, c)))
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestJWTExtractor_EnforcesIssuer(t *testing.T) {
	c := validClaims()
	c["iss"] = "someone-else"
	_, err := NewJWTExtractor(testSecret, WithIssuer("rental-auth")).Extract(requestWithToken(signToken(t, c)))
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestJWTExtractor_MissingHeader(t *testing.T) {
	_, err := NewJWTExtractor(testSecret).Extract(requestWithToken(""))
	require.ErrorIs(t, err, ErrUnauthenticated)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic abc")
	_, err = NewJWTExtractor(testSecret).Extract(r)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestPermissionSet_RejectsOtherTypes(t *testing.T) {
	var p PermissionSet
	require.Error(t, json.Unmarshal([]byte(`42`), &p))
}

func TestExtractUserID(t *testing.T) {
	id, ok := ExtractUserID(context.Background())
	require.False(t, ok)
	require.Empty(t, id)

	ctx := WithUser(context.Background(), UserContext{SubjectID: "u-1"})
	id, ok = ExtractUserID(ctx)
	require.True(t, ok)
	require.Equal(t, "u-1", id)
}
