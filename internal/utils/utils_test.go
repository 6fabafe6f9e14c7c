package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-booking/internal/model"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "ops", RoleAdmin, time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), tok.Exp, 5*time.Second)

	sub, role, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops", sub)
	assert.Equal(t, RoleAdmin, role)
}

func TestParseAccessTokenRejects(t *testing.T) {
	good, err := NewAccessToken("s3cret", "ops", RoleAdmin, time.Minute)
	require.NoError(t, err)
	expired, err := NewAccessToken("s3cret", "ops", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops", "role": RoleAdmin}).
		SignedString([]byte("s3cret"))
	require.NoError(t, err)

	cases := map[string]struct{ secret, raw string }{
		"wrong secret": {"other", good.Token},
		"expired":      {"s3cret", expired.Token},
		"no expiry":    {"s3cret", noExp},
		"garbage":      {"s3cret", "not-a-jwt"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseAccessToken(tc.secret, tc.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = NewAccessToken("", "ops", RoleAdmin, time.Minute)
	assert.Error(t, err)
}

type sample struct {
	Gate  string `json:"gate" validate:"required,gate"`
	Date  string `json:"date" validate:"required,isodate"`
	Clock string `json:"clock" validate:"required,clock"`
	Email string `json:"email" validate:"omitempty,email"`
	Total int    `json:"total" validate:"gte=0"`
	Left  int    `json:"left" validate:"gte=0,ltefield=Total"`
}

func TestValidatorCustomRules(t *testing.T) {
	v := NewValidator()

	ok := sample{Gate: "GATE07", Date: "2026-12-01", Clock: "23:59", Email: "a@b.co", Total: 10, Left: 10}
	assert.NoError(t, v.Validate(ok))

	withTime := ok
	withTime.Date = "2026-12-01T10:00:00Z"
	assert.NoError(t, v.Validate(withTime))

	bad := sample{Gate: "G7", Date: "01/12/2026", Clock: "24:00", Email: "nope", Total: 5, Left: 6}
	err := v.Validate(bad)
	require.Error(t, err)
	msg := ValidationMessage(err)
	assert.Contains(t, msg, "gate: must look like GATE01")
	assert.Contains(t, msg, "date: must be a date (YYYY-MM-DD)")
	assert.Contains(t, msg, "clock: must be a time of day (HH:MM)")
	assert.Contains(t, msg, "email: must be a valid email")
	assert.Contains(t, msg, "left: must not exceed Total")
}

func TestValidationMessagePassesThroughOtherErrors(t *testing.T) {
	assert.Equal(t, "invalid token", ValidationMessage(ErrInvalidToken))
}

func TestValidatorAgreesWithModelParsing(t *testing.T) {
	v := NewValidator()
	type dated struct {
		Date string `json:"date" validate:"isodate"`
	}
	type gated struct {
		Gate string `json:"gate" validate:"gate"`
	}
	dates := []string{"2026-12-01", " 2026-12-01 ", "2026-12-01T10:00:00+02:00", "2026-02-30", "2026-1-1", "", "tomorrow"}
	for _, d := range dates {
		_, err := model.NormalizeDate(d)
		assert.Equal(t, err == nil, v.Validate(dated{Date: d}) == nil, "date %q", d)
	}
	gates := []string{"GATE01", "GATE1", "gate01", "GATE001", " GATE01"}
	for _, g := range gates {
		assert.Equal(t, model.ValidGate(g), v.Validate(gated{Gate: g}) == nil, "gate %q", g)
	}
}
