package rc

import (
	"fmt"
)

// Entity identifies the thing an error is about. The same space is used
// for the error target (the component reporting) and the object (the thing
// that was wrong).
type Entity int

const (
	NoEntity Entity = iota
	Path
	Mgr
	File
	Directory
	EncryptionKey
	Encryption
	Buffer
	Param
	Self
	Char
	Data
	String
	Token
	Function
	SRA
	Memory
	Size
)

// Op identifies the operation that was underway when the error occurred.
type Op int

const (
	NoOp Op = iota
	Parsing
	Resolving
	Opening
	Reading
	Writing
	Updating
	Constructing
	Accessing
	Registering
	Retrieving
	Releasing
	Attaching
)

// State is the cause of the failure.
type State int

const (
	NoState State = iota
	Null
	Empty
	Invalid
	Incorrect
	Unexpected
	Insufficient
	Excessive
	NotFound
	NotAvailable
	Unsupported
	Unknown
	ReadOnly
	Exhausted
	Corrupt
	Unrecognized
	WrongType
)

var entityNames = map[Entity]string{
	Path:          "path",
	Mgr:           "manager",
	File:          "file",
	Directory:     "directory",
	EncryptionKey: "encryption key",
	Encryption:    "encryption",
	Buffer:        "buffer",
	Param:         "param",
	Self:          "self",
	Char:          "char",
	Data:          "data",
	String:        "string",
	Token:         "token",
	Function:      "function",
	SRA:           "sra",
	Memory:        "memory",
	Size:          "size",
}

var opNames = map[Op]string{
	Parsing:      "parsing",
	Resolving:    "resolving",
	Opening:      "opening",
	Reading:      "reading",
	Writing:      "writing",
	Updating:     "updating",
	Constructing: "constructing",
	Accessing:    "accessing",
	Registering:  "registering",
	Retrieving:   "retrieving",
	Releasing:    "releasing",
	Attaching:    "attaching",
}

var stateNames = map[State]string{
	Null:         "null",
	Empty:        "empty",
	Invalid:      "invalid",
	Incorrect:    "incorrect",
	Unexpected:   "unexpected",
	Insufficient: "insufficient",
	Excessive:    "excessive",
	NotFound:     "not found",
	NotAvailable: "not available",
	Unsupported:  "unsupported",
	Unknown:      "unknown",
	ReadOnly:     "read-only",
	Exhausted:    "exhausted",
	Corrupt:      "corrupt",
	Unrecognized: "unrecognized",
	WrongType:    "wrong type",
}

// Error is a structured result code: target, operation, object, state.
// It optionally wraps an underlying cause.
type Error struct {
	Target Entity
	Op     Op
	Object Entity
	State  State
	cause  error
}

func New(target Entity, op Op, object Entity, state State) *Error {
	return &Error{Target: target, Op: op, Object: object, State: state}
}

// Wrap attaches an underlying cause to a result code.
func Wrap(cause error, target Entity, op Op, object Entity, state State) *Error {
	return &Error{Target: target, Op: op, Object: object, State: state, cause: cause}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s %s", entityNames[e.Target], opNames[e.Op],
		entityNames[e.Object], stateNames[e.State])
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Cause supports github.com/pkg/errors style cause extraction.
func (e *Error) Cause() error {
	return e.cause
}

// StateOf extracts the state of a result-code error, or NoState for
// nil and foreign errors.
func StateOf(err error) State {
	for err != nil {
		if rcerr, ok := err.(*Error); ok {
			return rcerr.State
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return NoState
		}
		err = u.Unwrap()
	}
	return NoState
}

// Is reports whether err is a result code with the given state.
func Is(err error, state State) bool {
	return err != nil && StateOf(err) == state
}

// ObjectOf extracts the object of a result-code error.
func ObjectOf(err error) Entity {
	for err != nil {
		if rcerr, ok := err.(*Error); ok {
			return rcerr.Object
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return NoEntity
		}
		err = u.Unwrap()
	}
	return NoEntity
}
