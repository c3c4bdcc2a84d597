package qerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverTurnsBugIntoError(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		Bug(NewUnknownSlot{ID: 4})
		return nil
	}
	err := run()
	assert.Error(t, err)

	var bugErr BugError
	assert.True(t, errors.As(err, &bugErr))
	assert.Equal(t, UnknownSlot, bugErr.Cause.Code())
	assert.Contains(t, err.Error(), "slot #4 does not exist")
	assert.Contains(t, err.Error(), "(Q002)")
}

func TestRecoverRepanicsForeignPanics(t *testing.T) {
	assert.PanicsWithValue(t, "boom", func() {
		var err error
		defer Recover(&err)
		panic("boom")
	})
}

func TestCatch(t *testing.T) {
	assert.Nil(t, Catch(func() {}))

	raised := Catch(func() {
		Bug(NewNullSlot{Construct: "combine constraint", Detail: "Result: <nil>"})
	})
	if assert.NotNil(t, raised) {
		assert.Equal(t, NullSlot, raised.Code())
		assert.Equal(t, "create combine constraint with null argument. Result: <nil>", raised.Error())
	}
}

func TestFormatWithCodeNamesRaisingFrame(t *testing.T) {
	raised := Catch(func() {
		Bug(NewTranslatorNotFinished{Backend: "maxsat"})
	})
	formatted := FormatWithCode(raised)
	assert.Contains(t, formatted, "errors_test.go")
	assert.Contains(t, formatted, "maxsat translator used before Finish")
}
