package errors

import "fmt"

var (
	ErrValidation           = fmt.Errorf("validation failed")
	ErrNotFound             = fmt.Errorf("not found")
	ErrUnauthorized         = fmt.Errorf("unauthorized access")
	ErrPersistence          = fmt.Errorf("persistence failure")
	ErrNotificationDispatch = fmt.Errorf("notification dispatch failed")
	ErrQueueFull            = fmt.Errorf("notification queue is full")
)
