package domain

import "errors"

// ErrNoRoot is returned when a run starts on a Tree without a root branch.
var ErrNoRoot = errors.New("no root branch defined")

// ErrBranchExists is returned when a branch id collides with a registered one.
var ErrBranchExists = errors.New("branch already exists")

// ErrBranchNotFound is returned when a branch id cannot be resolved.
var ErrBranchNotFound = errors.New("branch not found")

// ErrToolExists is returned when a tool name collides with a registered one.
var ErrToolExists = errors.New("tool already exists")

// ErrToolNotFound is returned when a tool name cannot be resolved.
var ErrToolNotFound = errors.New("tool not found")

// ErrNoOptions is returned when a decision is requested with no options to
// choose from. It marks a malformed tree, not a recoverable condition.
var ErrNoOptions = errors.New("decision requires at least one option")

// ErrUnknownOption is returned when a decision strategy picks a value that
// is not one of the supplied options, or when a validated choice resolves to
// neither a tool nor a child branch.
var ErrUnknownOption = errors.New("decision returned unknown option")

// ErrRunNotFound is returned when a run id cannot be found in a run store.
var ErrRunNotFound = errors.New("run not found")

// ErrorKind classifies Error events and run-fatal failures.
type ErrorKind string

const (
	// ErrorKindConfiguration marks malformed-tree failures: a missing root,
	// empty decision options, or a decision naming an unregistered option.
	ErrorKindConfiguration ErrorKind = "configuration"

	// ErrorKindAvailability marks a tool reporting itself unusable for the
	// current run context.
	ErrorKindAvailability ErrorKind = "availability"

	// ErrorKindExecution marks failures raised while running a tool or a
	// decision strategy. Tools may emit their own custom kinds instead.
	ErrorKindExecution ErrorKind = "execution"
)

// KindOf classifies an engine error for the terminal Error event of a run.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNoRoot),
		errors.Is(err, ErrNoOptions),
		errors.Is(err, ErrUnknownOption),
		errors.Is(err, ErrBranchNotFound):
		return ErrorKindConfiguration
	default:
		return ErrorKindExecution
	}
}
