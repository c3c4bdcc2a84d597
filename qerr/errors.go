// Package qerr holds the error classes of a qualifier inference run.
//
// Errors of the programming-error class (a defect in the caller or a broken invariant)
// are raised with Bug, which panics. They are never meant to be handled where they are
// raised; Recover converts them back into an error at the boundary of a run.
package qerr

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// enableDebugErrorPrinting makes errors include the frame that raised them when printed
var enableDebugErrorPrinting = true

type Code int

const (
	None Code = iota
	NullSlot
	UnknownSlot
	UnknownQualifier
	UnknownConstraint
	TranslatorNotFinished
	UndecodableValue
	SolutionRewritten
)

func (c Code) String() string {
	switch c {
	case NullSlot:
		return "null slot"
	case UnknownSlot:
		return "unknown slot"
	case UnknownQualifier:
		return "unknown qualifier"
	case UnknownConstraint:
		return "unknown constraint"
	case TranslatorNotFinished:
		return "translator not finished"
	case UndecodableValue:
		return "undecodable value"
	case SolutionRewritten:
		return "solution rewritten"
	default:
		return "unclassified"
	}
}

type Error interface {
	Error() string
	Code() Code

	withStack([]byte) Error
	getStack() []byte
}

// FormatWithCode renders e with its code, and the frame that raised it when debug printing is on
func FormatWithCode(e Error) string {
	if enableDebugErrorPrinting && e.getStack() != nil {
		return fmt.Sprintf("%s: (Q%03d) %s", raisingFrame(e.getStack()), e.Code(), e.Error())
	}
	return fmt.Sprintf("(Q%03d) %s", e.Code(), e.Error())
}

// raisingFrame picks the file:line of the first frame of a debug.Stack that is not New or Bug
func raisingFrame(stack []byte) string {
	lines := strings.Split(string(stack), "\n")
	for i := 1; i+1 < len(lines); i += 2 {
		fn := strings.TrimSpace(lines[i])
		name := fn[strings.LastIndex(fn, "/")+1:]
		if strings.HasPrefix(name, "debug.Stack") || strings.HasPrefix(name, "qerr.New") || strings.HasPrefix(name, "qerr.Bug") {
			continue
		}
		return strings.TrimSpace(lines[i+1])
	}
	return "unknown"
}

func New[E Error](err E) Error {
	return err.withStack(debug.Stack())
}

// Bug panics with err. It reports the programming-error class: the run cannot continue
func Bug[E Error](err E) {
	panic(New(err))
}

// Recover turns a panic raised by Bug into *err, and re-panics anything else.
// It must be deferred directly.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if qe, ok := r.(Error); ok {
		*err = BugError{Cause: qe}
		return
	}
	panic(r)
}

// Catch runs f and returns the Error it raised with Bug, or nil if it returned normally
func Catch(f func()) (raised Error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		qe, ok := r.(Error)
		if !ok {
			panic(r)
		}
		raised = qe
	}()
	f()
	return nil
}

// BugError is what Recover produces
type BugError struct {
	Cause Error
}

func (e BugError) Error() string {
	return "internal inference error: " + FormatWithCode(e.Cause)
}

func (e BugError) Unwrap() error { return e.Cause }

type NewNullSlot struct {
	Construct string
	Detail    string
	stack     []byte
}

func (e NewNullSlot) Error() string {
	return fmt.Sprintf("create %s with null argument. %s", e.Construct, e.Detail)
}
func (e NewNullSlot) Code() Code { return NullSlot }
func (e NewNullSlot) getStack() []byte { return e.stack }
func (e NewNullSlot) withStack(stack []byte) Error {
	e.stack = stack
	return e
}

type NewUnknownSlot struct {
	ID    int
	stack []byte
}

func (e NewUnknownSlot) Error() string {
	return fmt.Sprintf("slot #%d does not exist", e.ID)
}
func (e NewUnknownSlot) Code() Code { return UnknownSlot }
func (e NewUnknownSlot) getStack() []byte { return e.stack }
func (e NewUnknownSlot) withStack(stack []byte) Error {
	e.stack = stack
	return e
}

type NewUnknownQualifier struct {
	Name  string
	stack []byte
}

func (e NewUnknownQualifier) Error() string {
	return fmt.Sprintf("qualifier '%s' is not part of the lattice", e.Name)
}
func (e NewUnknownQualifier) Code() Code { return UnknownQualifier }
func (e NewUnknownQualifier) getStack() []byte { return e.stack }
func (e NewUnknownQualifier) withStack(stack []byte) Error {
	e.stack = stack
	return e
}

type NewUnknownConstraint struct {
	Constraint fmt.Stringer
	stack      []byte
}

func (e NewUnknownConstraint) Error() string {
	return fmt.Sprintf("no translation for constraint %v (%T)", e.Constraint, e.Constraint)
}
func (e NewUnknownConstraint) Code() Code { return UnknownConstraint }
func (e NewUnknownConstraint) getStack() []byte { return e.stack }
func (e NewUnknownConstraint) withStack(stack []byte) Error {
	e.stack = stack
	return e
}

type NewTranslatorNotFinished struct {
	Backend string
	stack   []byte
}

func (e NewTranslatorNotFinished) Error() string {
	return fmt.Sprintf("%s translator used before Finish", e.Backend)
}
func (e NewTranslatorNotFinished) Code() Code { return TranslatorNotFinished }
func (e NewTranslatorNotFinished) getStack() []byte { return e.stack }
func (e NewTranslatorNotFinished) withStack(stack []byte) Error {
	e.stack = stack
	return e
}

type NewUndecodableValue struct {
	Backend string
	SlotID  int
	Value   string
	stack   []byte
}

func (e NewUndecodableValue) Error() string {
	return fmt.Sprintf("%s produced %s for slot #%d, which is no qualifier of the lattice", e.Backend, e.Value, e.SlotID)
}
func (e NewUndecodableValue) Code() Code { return UndecodableValue }
func (e NewUndecodableValue) getStack() []byte { return e.stack }
func (e NewUndecodableValue) withStack(stack []byte) Error {
	e.stack = stack
	return e
}

type NewSolutionRewritten struct {
	SlotID   int
	Previous string
	Next     string
	stack    []byte
}

func (e NewSolutionRewritten) Error() string {
	return fmt.Sprintf("slot #%d already solved to %s, cannot assign %s", e.SlotID, e.Previous, e.Next)
}
func (e NewSolutionRewritten) Code() Code { return SolutionRewritten }
func (e NewSolutionRewritten) getStack() []byte { return e.stack }
func (e NewSolutionRewritten) withStack(stack []byte) Error {
	e.stack = stack
	return e
}
