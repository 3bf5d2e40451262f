package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOTPEmailBody(t *testing.T) {
	body := otpEmailBody("Asha", "483920", 10*time.Minute)

	assert.Contains(t, body, "Asha")
	assert.Contains(t, body, "483920")
	assert.Contains(t, body, "10 minutes")
}

func TestWelcomeEmailBody_IncludesTemporaryCredentials(t *testing.T) {
	body := welcomeEmailBody("Asha", "CS21B001", "Temp-Pass-42")

	assert.Contains(t, body, "CS21B001")
	// The default password is the student's only way in; the welcome mail
	// must carry it
	assert.Contains(t, body, "Temp-Pass-42")
	assert.Contains(t, body, "new password on first login")
}
