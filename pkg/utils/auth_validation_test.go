package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medportal/pkg/xerrors"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("pat@example.com"))
	assert.NoError(t, ValidateEmail("first.last+tag@sub.example.co"))

	for _, bad := range []string{"", "plainaddress", "missing@domain", "@nouser.com", "spaces in@mail.com"} {
		assert.ErrorIs(t, ValidateEmail(bad), xerrors.ErrInvalidEmailFormat, "email %q", bad)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Sup3rSecret"))

	assert.ErrorIs(t, ValidatePassword("Ab1"), xerrors.ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword("alllowercase1"), xerrors.ErrPasswordUppercase)
	assert.ErrorIs(t, ValidatePassword("ALLUPPERCASE1"), xerrors.ErrPasswordLowercase)
	assert.ErrorIs(t, ValidatePassword("NoDigitsHere"), xerrors.ErrPasswordDigit)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("Sup3rSecret", hash))
	assert.False(t, CheckPasswordHash("WrongPass1", hash))
}
