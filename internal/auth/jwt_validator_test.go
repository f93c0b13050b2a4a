package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

func buildToken(t *testing.T, issuer, subject string, issued, expires time.Time) jwt.Token {
	t.Helper()
	b := jwt.NewBuilder().
		Issuer(issuer).
		Audience([]string{"aud"}).
		IssuedAt(issued).
		NotBefore(issued).
		Expiration(expires)
	if subject != "" {
		b = b.Subject(subject)
	}
	tok, err := b.Build()
	require.NoError(t, err)
	return tok
}

func TestTokenValidatorValidateSuccess(t *testing.T) {
	now := time.Now()
	validator := TokenValidator{Issuer: "issuer", Audience: "aud", ClockSkew: time.Second, Algorithm: jwa.HS256}
	require.NoError(t, validator.Validate(buildToken(t, "issuer", "admin", now, now.Add(time.Minute)), jwa.HS256, now))
}

func TestTokenValidatorRejectsForeignAdminTokens(t *testing.T) {
	now := time.Now()
	validator := TokenValidator{Issuer: "issuer", Audience: "aud", Algorithm: jwa.HS256}

	cases := map[string]struct {
		tok  jwt.Token
		alg  jwa.SignatureAlgorithm
		want string
	}{
		"issuer mismatch": {buildToken(t, "other", "admin", now, now.Add(time.Minute)), jwa.HS256, "admin token rejected"},
		"expired":         {buildToken(t, "issuer", "admin", now.Add(-2*time.Hour), now.Add(-time.Minute)), jwa.HS256, "admin token rejected"},
		"no subject":      {buildToken(t, "issuer", "", now, now.Add(time.Minute)), jwa.HS256, "names no admin"},
		"blank subject":   {buildToken(t, "issuer", "  ", now, now.Add(time.Minute)), jwa.HS256, "names no admin"},
		"wrong algorithm": {buildToken(t, "issuer", "admin", now, now.Add(time.Minute)), jwa.RS256, "signed with RS256, want HS256"},
		"no algorithm":    {buildToken(t, "issuer", "admin", now, now.Add(time.Minute)), "", "has no alg"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := validator.Validate(tc.tok, tc.alg, now)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
	require.ErrorContains(t, validator.Validate(nil, jwa.HS256, now), "no admin token")
}
