package ai

import "errors"

// ErrNotConfigured indicates the backend has no API key configured.
var ErrNotConfigured = errors.New("ai backend not configured")

// ErrInvalidAPIKey indicates the provider rejected the configured API key.
var ErrInvalidAPIKey = errors.New("ai api key not valid")

// ErrEmptyResponse indicates the provider returned no content.
var ErrEmptyResponse = errors.New("no analysis received from ai backend")
