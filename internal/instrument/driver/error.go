package driver

import "fmt"

// ConfigError is a custom error type for configuration errors
type ConfigError struct {
	msg string
}

func NewConfigError(msg string) *ConfigError {
	return &ConfigError{msg}
}

func (e *ConfigError) Error() string {
	return e.msg
}

// RuntimeError is returned when a driver call fails. It carries the name of
// the failing call and the driver's last error message.
type RuntimeError struct {
	call string
	msg  string
}

func NewRuntimeError(call, msg string) *RuntimeError {
	return &RuntimeError{call: call, msg: msg}
}

func (e *RuntimeError) Call() string {
	return e.call
}

func (e *RuntimeError) Error() string {
	if e.msg == "" {
		return fmt.Sprintf("%s failed", e.call)
	}
	return fmt.Sprintf("%s failed: %s", e.call, e.msg)
}

// OpenError is returned when a device cannot be opened. It is never retried.
type OpenError struct {
	Index   int
	Message string
}

func NewOpenError(index int, msg string) *OpenError {
	return &OpenError{Index: index, Message: msg}
}

func (e *OpenError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("failed to open device %d", e.Index)
	}
	return fmt.Sprintf("failed to open device %d: %s", e.Index, e.Message)
}
