package error

import "errors"

var (
	ErrBuildFailed          = errors.New("Build error")
	ErrLaunchFailed         = errors.New("Launch error")
	ErrAttachFailed         = errors.New("Attach error")
	ErrNoActiveSession      = errors.New("debug not start")
	ErrDebuggerIsClosed     = errors.New("debug is closed")
	ErrProgramIsRunning     = errors.New("The program is running")
	ErrSourcePathIsRequired = errors.New("source path is required")
)
