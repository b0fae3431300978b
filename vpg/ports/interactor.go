package ports

// Interactor is the user-facing output surface of the CLI commands.
type Interactor interface {
	Output(message string)
	Outputf(format string, args ...any)
	Warning(message string)
	Error(message string, err error)
}
