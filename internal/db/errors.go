package db

import "errors"

// Sentinel errors for storage operations.
var (
	ErrNotFound               = errors.New("db: not found")
	ErrKeyNotFound            = errors.New("db: key not found")
	ErrIndexExists            = errors.New("db: index already exists")
	ErrVectorIndexUnsupported = errors.New("db: vector index not supported by backend")
)

// Op constants name store operations for error context.
const (
	OpListCollections = "listCollections"
	OpDistinct        = "distinct"
	OpFindOne         = "findOne"
	OpFind            = "find"
	OpCount           = "count"
	OpUpdateOne       = "updateOne"
	OpWatch           = "watch"
	OpCreateIndex     = "createSearchIndex"
	OpGet             = "GET"
	OpSet             = "SET"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
