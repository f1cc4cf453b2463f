package service

import "errors"

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrUserNotFound      = errors.New("user not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrForbidden         = errors.New("session belongs to another user")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrSessionCompleted  = errors.New("session is completed")
	ErrRunNotFound       = errors.New("run not found")
	ErrPersistenceFailed = errors.New("message could not be saved")
	ErrReplyTimeout      = errors.New("reply not ready yet, the message is still being processed")
	ErrInvalidMoodScore  = errors.New("mood score must be between 0 and 100")
	ErrInvalidActivity   = errors.New("unknown activity type")
)
