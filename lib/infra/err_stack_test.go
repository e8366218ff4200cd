package infra

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorStackWrapping(t *testing.T) {
	cause := errors.New("root cause")
	err := WrapErrorStack(cause)
	require.Error(t, err)
	require.True(t, errors.Is(err, cause))

	// Re-wrapping must not stack a second frame capture.
	err2 := WrapErrorStack(err)
	require.Same(t, err, err2)

	require.Nil(t, WrapErrorStack(nil))
}

func TestErrorStackFrames(t *testing.T) {
	err := NewErrorStack("boom")
	es, ok := err.(ErrorStack)
	require.True(t, ok)
	require.NotEmpty(t, es.Frames())

	verbose := fmt.Sprintf("%+v", err)
	require.True(t, strings.HasPrefix(verbose, "boom"))
	require.Contains(t, verbose, "err_stack_test.go")
}

func TestErrorStackMessageChain(t *testing.T) {
	cause := errors.New("inner")
	err := WrapErrorStack(cause, "outer")
	require.Equal(t, "outer: inner", err.Error())
}

func TestAppendErrors(t *testing.T) {
	require.NoError(t, AppendErrors(nil, nil))
	e1, e2 := errors.New("e1"), errors.New("e2")
	combined := AppendErrors(e1, nil, e2)
	require.True(t, errors.Is(combined, e1))
	require.True(t, errors.Is(combined, e2))
}
