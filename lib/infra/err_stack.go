package infra

import (
	"fmt"
	"io"
	"path"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

// References:
// https://github.com/pkg/errors/blob/master/stack.go

type Frame uintptr

func (frame Frame) pc() uintptr {
	return uintptr(frame) - 1
}

func (frame Frame) file() string {
	pc := frame.pc()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknownFile"
	}
	f, _ := fn.FileLine(pc)
	return f
}

func (frame Frame) line() int {
	pc := frame.pc()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return 0
	}
	_, l := fn.FileLine(pc)
	return l
}

func (frame Frame) name() string {
	pc := frame.pc()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknownFunc"
	}
	return fn.Name()
}

// Format characters:
// %s - source file
// %d - source line
// %n - function name
// %v - verbose, equivalent to %s:%d
// %+s - full path, the root path is relative to the compile time GOPATH
// separated by \n\t (<function-name>\n\t<path>)
// %+v - equivalent to %+s:%d
func (frame Frame) Format(s fmt.State, verb rune) {
	switch verb {
	case 's':
		if s.Flag('+') {
			_, _ = io.WriteString(s, frame.name())
			_, _ = io.WriteString(s, "\n\t")
			_, _ = io.WriteString(s, frame.file())
		} else {
			_, _ = io.WriteString(s, path.Base(frame.file()))
		}
	case 'd':
		_, _ = io.WriteString(s, strconv.Itoa(frame.line()))
	case 'n':
		_, _ = io.WriteString(s, funcName(frame.name()))
	case 'v':
		frame.Format(s, 's')
		_, _ = io.WriteString(s, ":")
		frame.Format(s, 'd')
	}
}

func funcName(name string) string {
	i := strings.LastIndex(name, "/")
	name = name[i+1:]
	i = strings.Index(name, ".")
	return name[i+1:]
}

// ErrorStack is an error carrying the call frames captured at wrap time.
// The frames of the outermost wrap win; re-wrapping an ErrorStack is a no-op.
type ErrorStack interface {
	error
	Frames() []Frame
}

type errorStack struct {
	msg    string
	cause  error
	frames []Frame
}

func (e *errorStack) Error() string {
	if e.cause == nil {
		return e.msg
	}
	if len(e.msg) <= 0 {
		return e.cause.Error()
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *errorStack) Unwrap() error { return e.cause }

func (e *errorStack) Frames() []Frame { return e.frames }

func (e *errorStack) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		_, _ = io.WriteString(s, e.Error())
		if s.Flag('+') {
			for _, frame := range e.frames {
				_, _ = io.WriteString(s, "\n")
				frame.Format(s, 'v')
			}
		}
	case 's':
		_, _ = io.WriteString(s, e.Error())
	}
}

func callers(skip int) []Frame {
	var pcs [16]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := make([]Frame, 0, n)
	for i := 0; i < n; i++ {
		frames = append(frames, Frame(pcs[i]))
	}
	return frames
}

// NewErrorStack creates a frame-capturing error from a plain message.
func NewErrorStack(msg string) error {
	return &errorStack{
		msg:    msg,
		frames: callers(3),
	}
}

// WrapErrorStack attaches the current call frames to err.
// Nil in, nil out. Errors that already carry frames pass through untouched.
func WrapErrorStack(err error, msg ...string) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(ErrorStack); ok && len(msg) <= 0 {
		return err
	}
	m := ""
	if len(msg) > 0 {
		m = strings.Join(msg, "; ")
	}
	return &errorStack{
		msg:    m,
		cause:  err,
		frames: callers(3),
	}
}

// AppendErrors combines multiple errors into one, skipping nils.
func AppendErrors(errs ...error) error {
	return multierr.Combine(errs...)
}
