// Package auth provides a high-level API for persisting and retrieving user credentials from the system keyring.
package auth

import (
	"github.com/zalando/go-keyring"
)

const (
	service = "aniplay-cli"
	user    = "catalog-token"
)

// SetToken persists the catalog API access token to the system keyring.
func SetToken(token string) error {
	return keyring.Set(service, user, token)
}

// GetToken retrieves the catalog API access token from the system keyring.
func GetToken() (string, error) {
	return keyring.Get(service, user)
}

// DeleteToken removes the catalog API access token from the system keyring.
func DeleteToken() error {
	return keyring.Delete(service, user)
}

// Token returns the stored access token, or an empty string when none is set.
func Token() string {
	token, err := GetToken()
	if err != nil {
		return ""
	}
	return token
}
