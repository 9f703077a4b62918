package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	ErrEmptyDisplayName   = fmt.Errorf("display name is empty")
	ErrDisplayNameTooLong = fmt.Errorf("display name is too long")
	ErrInvalidColor       = fmt.Errorf("color must be a hex color")
	ErrEmptyText          = fmt.Errorf("message text is empty")
	ErrContentTooLong     = fmt.Errorf("message text is too long")
	ErrInvalidStatus      = fmt.Errorf("unknown presence status")

	ErrNotLoggedIn     = fmt.Errorf("session is logged out")
	ErrAlreadyLoggedIn = fmt.Errorf("session is already logged in")

	// ErrAppendConflict is returned once every optimistic append attempt lost
	// against a concurrent writer.
	ErrAppendConflict = fmt.Errorf("message append kept conflicting")

	ErrNotificationUnavailable = fmt.Errorf("no notification output available")
)
