package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_Success(t *testing.T) {
	hash, err := HashPassword("Correct-Horse-Battery-7")

	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "Correct-Horse-Battery-7", hash)
}

func TestHashPassword_EmptyPassword(t *testing.T) {
	hash, err := HashPassword("")

	assert.Error(t, err)
	assert.Empty(t, hash)
}

func TestHashPassword_ProducesUniqueHashes(t *testing.T) {
	hash1, err := HashPassword("Correct-Horse-Battery-7")
	require.NoError(t, err)

	hash2, err := HashPassword("Correct-Horse-Battery-7")
	require.NoError(t, err)

	// bcrypt salts every hash
	assert.NotEqual(t, hash1, hash2)
}

func TestComparePassword(t *testing.T) {
	hash, err := HashPassword("Correct-Horse-Battery-7")
	require.NoError(t, err)

	assert.NoError(t, ComparePassword(hash, "Correct-Horse-Battery-7"))
	assert.Error(t, ComparePassword(hash, "wrong-password"))
}

func TestValidatePassword_Valid(t *testing.T) {
	valid := []string{
		"Correct-Horse-Battery-7",
		"Tr1cky&Unguessable",
		"mY5ecure#passphrase",
	}

	for _, password := range valid {
		assert.NoError(t, ValidatePassword(password), "password %q should pass", password)
	}
}

func TestValidatePassword_Invalid(t *testing.T) {
	cases := map[string]string{
		"too short":    "Ab1x",
		"no uppercase": "lowercase-only-137",
		"no lowercase": "UPPERCASE-ONLY-137",
		"no digits":    "NoDigitsHereAtAll",
		"common":       "Password123",
	}

	for name, password := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidatePassword(password)
			require.Error(t, err)

			// Failure reason stays internal
			var pwErr *PasswordValidationError
			require.ErrorAs(t, err, &pwErr)
			assert.Equal(t, "invalid password", pwErr.Error())
			assert.NotEmpty(t, pwErr.Errors)
		})
	}
}
