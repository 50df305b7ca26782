package engine

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/shirokuma-kb/shirokuma/internal/itemtype"
	"github.com/shirokuma-kb/shirokuma/internal/relgraph"
	"github.com/shirokuma-kb/shirokuma/internal/tagstore"
)

// Kind is the sum-type error taxonomy shared across every operation. The
// transport layer maps these onto its own wire error codes; the engine
// never exposes file-system paths or internal detail in Message.
type Kind string

const (
	KindNotFound        Kind = "NotFound"
	KindAlreadyExists   Kind = "AlreadyExists"
	KindValidationError Kind = "ValidationError"
	KindInUse           Kind = "InUse"
	KindInvalidRelation Kind = "InvalidRelation"
	KindInvalidQuery    Kind = "InvalidQuery"
	KindBusy            Kind = "Busy"
	KindTimeout         Kind = "Timeout"
	KindIntegrityError  Kind = "IntegrityError"
	KindInternal        Kind = "Internal"
)

// FieldError is one entry of a ValidationError's per-field breakdown.
type FieldError struct {
	Field  string
	Reason string
}

// Error is the typed result every engine operation returns on failure.
type Error struct {
	Kind        Kind
	Entity      string
	Key         string
	Op          string
	FieldErrors []FieldError
	Message     string
	cause       error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
	case KindAlreadyExists:
		return fmt.Sprintf("%s %q already exists", e.Entity, e.Key)
	case KindInUse:
		return fmt.Sprintf("%s %q is in use", e.Entity, e.Key)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.cause }

func notFound(entity, key string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, Key: key}
}

func alreadyExists(entity, key string) *Error {
	return &Error{Kind: KindAlreadyExists, Entity: entity, Key: key}
}

func validationError(errs ...FieldError) *Error {
	return &Error{Kind: KindValidationError, FieldErrors: errs}
}

func inUse(entity, by string) *Error {
	return &Error{Kind: KindInUse, Entity: entity, Message: fmt.Sprintf("%s is referenced by %s", entity, by)}
}

func invalidRelation(reason string) *Error {
	return &Error{Kind: KindInvalidRelation, Message: reason}
}

func invalidQuery(reason string) *Error {
	return &Error{Kind: KindInvalidQuery, Message: reason}
}

func busy(op string) *Error {
	return &Error{Kind: KindBusy, Op: op, Message: fmt.Sprintf("%s: enricher queue is full", op)}
}

func timeout(op string) *Error {
	return &Error{Kind: KindTimeout, Op: op, Message: fmt.Sprintf("%s: exceeded its time budget", op)}
}

func integrityError(detail string) *Error {
	return &Error{Kind: KindIntegrityError, Message: detail}
}

func internalError(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Message: fmt.Sprintf("%s: internal error", op), cause: err}
}

// translate maps a lower-layer error (sql.ErrNoRows, or one of the typed
// wrapper-package errors from C1/C3/C7) into the engine's Kind taxonomy. Any
// error not recognized becomes Internal, carrying the original as cause.
func translate(op, entity string, err error) *Error {
	if err == nil {
		return nil
	}

	var engErr *Error
	if errors.As(err, &engErr) {
		return engErr
	}

	if errors.Is(err, sql.ErrNoRows) {
		return notFound(entity, "")
	}

	var typeNotFound itemtype.ErrNotFound
	if errors.As(err, &typeNotFound) {
		return notFound("type", typeNotFound.Name)
	}
	var invName itemtype.ErrInvalidName
	if errors.As(err, &invName) {
		return validationError(FieldError{Field: "type", Reason: err.Error()})
	}
	var invBase itemtype.ErrInvalidBaseType
	if errors.As(err, &invBase) {
		return validationError(FieldError{Field: "baseType", Reason: err.Error()})
	}
	var typeExists itemtype.ErrAlreadyExists
	if errors.As(err, &typeExists) {
		return alreadyExists("type", typeExists.Name)
	}
	var typeInUse itemtype.ErrInUse
	if errors.As(err, &typeInUse) {
		return inUse("type "+typeInUse.Name, fmt.Sprintf("%d items", typeInUse.Count))
	}

	var tagInUse tagstore.ErrInUse
	if errors.As(err, &tagInUse) {
		return inUse("tag "+tagInUse.Name, fmt.Sprintf("%d items", tagInUse.Count))
	}

	var badRelation relgraph.ErrInvalidRelation
	if errors.As(err, &badRelation) {
		return invalidRelation(badRelation.Reason)
	}

	return internalError(op, err)
}
