package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrInvalidCron   = fmt.Errorf("invalid cron expression")

	// Account and task errors
	ErrAccountNotFound = fmt.Errorf("account not found")
	ErrTaskNotFound    = fmt.Errorf("task not found")
	ErrTaskRunning     = fmt.Errorf("task run already in progress")

	// Provider errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrShareModerated     = fmt.Errorf("share pending moderation")
	ErrShareNotFound      = fmt.Errorf("share not found")
	ErrFolderNotFound     = fmt.Errorf("folder not found")
	ErrTransferFailed     = fmt.Errorf("batch transfer failed")
	ErrConflictUnresolved = fmt.Errorf("transfer conflict unresolved")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
