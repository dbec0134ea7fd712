package container

import (
	"errors"
	"fmt"
	"strings"
)

// Standard container errors. Every error returned by the container matches
// one of these with errors.Is.
var (
	ErrRegistration      = errors.New("invalid registration")
	ErrUnknownService    = errors.New("undefined service")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrDuplicateInstance = errors.New("service already has an instance")
	ErrCyclicDependency  = errors.New("cyclic dependency")
	ErrUnassignable      = errors.New("no slot for value")
)

// ServiceError wraps a failure of one operation on one service.
type ServiceError struct {
	Service   string
	Operation string
	Err       error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s: %s: %v", e.Service, e.Operation, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new service error.
func NewServiceError(service, operation string, err error) *ServiceError {
	return &ServiceError{
		Service:   service,
		Operation: operation,
		Err:       err,
	}
}

// CycleError reports a dependency cycle. Path starts and ends with the
// same service.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cyclic dependency: " + strings.Join(e.Path, " -> ")
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// newCycleError builds the cycle from the active resolution path and the
// name that closed it.
func newCycleError(path []string, name string) *CycleError {
	start := 0
	for i, n := range path {
		if n == name {
			start = i
			break
		}
	}
	cycle := append(append([]string(nil), path[start:]...), name)
	return &CycleError{Path: cycle}
}

func undefinedService(op, name string) error {
	return NewServiceError(name, op, ErrUnknownService)
}

func invalidParameter(op, service, param string) error {
	return NewServiceError(service, op, fmt.Errorf("%w %q for service %q", ErrInvalidParameter, param, service))
}
