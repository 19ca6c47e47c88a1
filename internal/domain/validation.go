package domain

import "fmt"

func wrapValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Validationf formats a message and wraps it with ErrValidation.
func Validationf(format string, args ...any) error {
	return wrapValidation(fmt.Sprintf(format, args...))
}
