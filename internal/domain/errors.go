package domain

import "errors"

var (
	ErrTaskNotFound   = errors.New("research task not found")
	ErrTaskNotRunning = errors.New("research task is not running")
	ErrUnauthorized   = errors.New("invalid authentication credentials")
	ErrCacheMiss      = errors.New("cache key not found")
)
