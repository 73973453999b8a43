package auth

import (
	"github.com/pquerna/otp/totp"
)

// VerifyTOTP checks a 6-digit code against the configured admin secret.
// An empty secret always fails — deployments without one have key
// issuance disabled.
func VerifyTOTP(secret, code string) bool {
	if secret == "" {
		return false
	}
	return totp.Validate(code, secret)
}

// GenerateTOTPSecret creates a new shared secret for admin enrollment.
// Issuer and account name end up in the provisioning URL shown once at
// setup time.
func GenerateTOTPSecret(issuer, account string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}
