package store

import (
	"fmt"

	"github.com/ValentinKolb/cKV/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() (db.KVDB, error)

// IStore is the interface of the persistence collaborator behind the store service.
// Values are the encoded text of a value, the store does not interpret them.
// All write operations return only an error (nil on success), read operations return the
// requested data along with an error (nil on success). Failures are of type *Error.
type IStore interface {
	// Load populates the in-memory mirror from the durable table. It must be called
	// once before the store is used and may be called again to resynchronize.
	Load() (err error)
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	// An absent key is not an error.
	Get(key string) (value string, loaded bool, err error)
	// Set inserts or updates a key–value pair. The pair is durable when Set returns.
	Set(key string, value string) (err error)
	// Delete deletes a key–value pair. Deleting an absent key is a no-op.
	Delete(key string) (err error)
	// Clear removes all key–value pairs.
	Clear() (err error)
	// Exists returns whether a key is present in the in-memory mirror.
	Exists(key string) (loaded bool, err error)
	// Keys returns all keys in ascending order.
	Keys() (keys []string, err error)
	// Size returns the number of keys in the in-memory mirror.
	Size() int
	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
	// Close closes the underlying database.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// an error message and optionally the underlying cause.
type Error struct {
	Code  RetCode // The return code
	Msg   string  // The error message.
	Cause error   // The underlying error, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCInternalError:
		errorCode = "InternalError"
	case RetCUnsupportedOperation:
		errorCode = "UnsupportedOperation"
	case RetCInvalidOperation:
		errorCode = "InvalidOperation"
	default:
		errorCode = "Unknown"
	}

	if e.Cause != nil {
		return fmt.Sprintf("StoreError (code %s): %s: %v", errorCode, e.Msg, e.Cause)
	}
	return fmt.Sprintf("StoreError (code %s): %s", errorCode, e.Msg)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new store error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new internal store error for a failed operation of the database.
func WrapError(cause error, msg string) *Error {
	return &Error{
		Code:  RetCInternalError,
		Msg:   msg,
		Cause: cause,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
)
