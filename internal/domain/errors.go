package domain

import "errors"

var (
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrSessionExpired       = errors.New("session expired")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrSecretNotFound       = errors.New("secret not found")
)
