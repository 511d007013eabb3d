package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Secret123")
	require.NoError(t, err)

	ok, err := VerifyPassword("Secret123", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("secret123", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidatePasswordStrength(t *testing.T) {
	assert.ErrorIs(t, ValidatePasswordStrength("Ab1"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePasswordStrength("alllowercase1"), ErrPasswordTooWeak)
	assert.ErrorIs(t, ValidatePasswordStrength("NoDigitsHere"), ErrPasswordTooWeak)
	assert.NoError(t, ValidatePasswordStrength("GoodPass1"))
	assert.NoError(t, ValidatePasswordLength("weakbutlong"))
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"01012345678":      "+201012345678",
		"1012345678":       "+201012345678",
		"+20 101 234 5678": "+201012345678",
		"(02) 2735-0000":   "+20227350000",
		"+44 20 7946 0958": "+442079460958",
		"00201012345678":   "+201012345678",
		"12345":            "",
		"call me":          "",
		"0101234567x":      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
	assert.False(t, ValidPhone("abc"))
}

func TestParseCoordinate(t *testing.T) {
	lat := ParseCoordinate("30.0609422123456", MaxLatitude)
	require.NotNil(t, lat)
	assert.Equal(t, 30.06094221, *lat)

	assert.Nil(t, ParseCoordinate("91", MaxLatitude))
	assert.Nil(t, ParseCoordinate("-180.5", MaxLongitude))
	assert.Nil(t, ParseCoordinate("north", MaxLatitude))
	assert.Nil(t, ParseCoordinate("NaN", MaxLatitude))
	assert.Nil(t, ParseCoordinate("", MaxLatitude))

	lng := ParseCoordinate(" 180 ", MaxLongitude)
	require.NotNil(t, lng)
	assert.Equal(t, 180.0, *lng)
}

func TestGenerateResetToken(t *testing.T) {
	a, err := GenerateResetToken()
	require.NoError(t, err)
	b, err := GenerateResetToken()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
