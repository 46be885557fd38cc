package matchers

import (
	"fmt"
	"reflect"

	"github.com/lawrencejones/convsink/pkg/convert"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gstruct"
	. "github.com/onsi/gomega/types"
)

// recorder is satisfied by sink.MemorySink, for any value type.
type recorder interface {
	Closed() bool
	Err() error
}

// HaveCompletedWith succeeds when a recording sink was closed without an error, having
// received values matching the given values or matcher.
func HaveCompletedWith(values interface{}) GomegaMatcher {
	return &sessionMatcher{
		outcome: "completed",
		match: func(rec recorder) (bool, error) {
			if !rec.Closed() || rec.Err() != nil {
				return false, nil
			}

			return match(values).Match(valuesOf(rec))
		},
	}
}

// HaveFailedWith succeeds when a recording sink received an error matching the given
// error or matcher.
func HaveFailedWith(err interface{}) GomegaMatcher {
	errMatcher, ok := err.(GomegaMatcher)
	if !ok {
		errMatcher = MatchError(err)
	}

	return &sessionMatcher{
		outcome: "failed",
		match: func(rec recorder) (bool, error) {
			if rec.Err() == nil {
				return false, nil
			}

			return errMatcher.Match(rec.Err())
		},
	}
}

// BeFormatError matches errors that are, or wrap, a convert.FormatError raised by the
// named format.
func BeFormatError(format string) GomegaMatcher {
	return WithTransform(
		func(err error) *convert.FormatError {
			var formatErr *convert.FormatError
			if errors.As(err, &formatErr) {
				return formatErr
			}

			return nil
		},
		PointTo(MatchFields(IgnoreExtras, Fields{
			"Format": Equal(format),
		})),
	)
}

type sessionMatcher struct {
	outcome string
	match   func(recorder) (bool, error)
}

func (m *sessionMatcher) Match(actual interface{}) (success bool, err error) {
	rec, ok := actual.(recorder)
	if !ok {
		return false, fmt.Errorf("was not given a recording sink")
	}

	return m.match(rec)
}

func (m *sessionMatcher) FailureMessage(actual interface{}) (message string) {
	return fmt.Sprintf("Expected sink to have %s, but it was:\n%s", m.outcome, spew.Sdump(actual))
}

func (m *sessionMatcher) NegatedFailureMessage(actual interface{}) (message string) {
	return fmt.Sprintf("Expected sink not to have %s, but it was:\n%s", m.outcome, spew.Sdump(actual))
}

// valuesOf calls Values() on the recorder, which is generic and so can't be named in our
// recorder interface.
func valuesOf(rec recorder) interface{} {
	method := reflect.ValueOf(rec).MethodByName("Values")
	if !method.IsValid() {
		return nil
	}

	return method.Call(nil)[0].Interface()
}

func match(thing interface{}) GomegaMatcher {
	if matcher, ok := thing.(GomegaMatcher); ok {
		return matcher
	}

	return Equal(thing)
}
