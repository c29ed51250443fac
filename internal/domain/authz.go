package domain

import (
	"fmt"
	"log"
)

// Predicate decides a per-record capability.
type Predicate func(record *Record) (bool, error)

// Gate guards a column, filter or action. Visible decides whether the
// element exists for a record at all; Authorize decides whether the viewer
// may use it. Hidden is a static override of Visible. A nil predicate allows
// everything, and a predicate that errors or panics denies.
type Gate struct {
	Hidden               bool
	Visible              Predicate
	Authorize            Predicate
	HideWhenUnauthorized bool
	Logger               *log.Logger
}

// Allow builds a gate from a predicate that cannot fail.
func Allow(fn func(record *Record) bool) Predicate {
	return func(record *Record) (bool, error) {
		return fn(record), nil
	}
}

// IsVisible reports the static flag and, for a non-nil record, the
// visibility predicate.
func (g Gate) IsVisible(record *Record) bool {
	if g.Hidden {
		return false
	}
	return g.evaluate("visibility", g.Visible, record)
}

// IsAuthorized evaluates the authorization predicate. A nil predicate or nil
// record allows.
func (g Gate) IsAuthorized(record *Record) bool {
	return g.evaluate("authorization", g.Authorize, record)
}

// ShouldBeHidden is true when the gate is not visible for record or when it
// hides on denial and the record is denied.
func (g Gate) ShouldBeHidden(record *Record) bool {
	if !g.IsVisible(record) {
		return true
	}
	return g.HideWhenUnauthorized && !g.IsAuthorized(record)
}

// ShouldBeDisabled is true when the gate is visible, disables on denial and
// the record is denied.
func (g Gate) ShouldBeDisabled(record *Record) bool {
	return g.IsVisible(record) && !g.HideWhenUnauthorized && !g.IsAuthorized(record)
}

// Check returns ErrNotAuthorized when the record may not be acted on.
func (g Gate) Check(record *Record) error {
	if !g.IsVisible(record) || !g.IsAuthorized(record) {
		id := ""
		if record != nil {
			id = record.ID
		}
		return fmt.Errorf("record %s: %w", id, ErrNotAuthorized)
	}
	return nil
}

func (g Gate) evaluate(check string, pred Predicate, record *Record) (allowed bool) {
	if pred == nil || record == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			g.logger().Printf("[authz] %s check panicked for record %s: %v", check, record.ID, r)
			allowed = false
		}
	}()
	ok, err := pred(record)
	if err != nil {
		g.logger().Printf("[authz] %s check failed for record %s: %v", check, record.ID, err)
		return false
	}
	return ok
}

func (g Gate) logger() *log.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return log.Default()
}
