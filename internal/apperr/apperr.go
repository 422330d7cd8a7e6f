// Package apperr defines the tagged-sum error kind shared across the engine,
// portfolio manager, strategy generator, and API layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind discriminates the error categories the propagation policy dispatches on.
type Kind string

const (
	Database  Kind = "database"
	MarketAPI Kind = "market_api"
	Strategy  Kind = "strategy"
	Data      Kind = "data"
	NotFound  Kind = "not_found"
)

// Error is a wrapped, kind-tagged error. The API layer maps NotFound to 404
// and everything else to 500.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func NewDatabase(msg string, err error) *Error { return New(Database, msg, err) }
func NewMarketAPI(msg string, err error) *Error { return New(MarketAPI, msg, err) }
func NewStrategy(msg string, err error) *Error { return New(Strategy, msg, err) }
func NewData(msg string, err error) *Error     { return New(Data, msg, err) }
func NewNotFound(msg string) *Error            { return New(NotFound, msg, nil) }

// KindOf extracts the Kind from err if it is (or wraps) an *Error, defaulting
// to Database for anything unrecognized (matches the HTTP layer's catch-all
// 500 for everything but NotFound).
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Database
}
