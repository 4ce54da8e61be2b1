package domain

import "errors"

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrNoCredential        = errors.New("no credential stored")
	ErrCredentialExpired   = errors.New("credential expired")
	ErrRefreshUnauthorized = errors.New("refresh token rejected")
	ErrRefreshNetwork      = errors.New("refresh request failed")
	ErrRefreshMalformed    = errors.New("malformed refresh response")
	ErrImportNotFound      = errors.New("no external credentials found")
	ErrImportMalformed     = errors.New("malformed external credentials")
)
