package di

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// multiErrBuilder can accumulate errors.
type multiErrBuilder struct {
	errs []error
}

// Add adds an error in the multiErrBuilder.
func (b *multiErrBuilder) Add(err error) {
	if err != nil {
		b.errs = append(b.errs, err)
	}
}

// Build returns an error containing all the messages
// of the accumulated errors. If there is no error
// in the builder, it returns nil.
// The returned error wraps the accumulated errors.
func (b *multiErrBuilder) Build() error {
	if len(b.errs) == 0 {
		return nil
	}

	msgs := make([]string, len(b.errs))

	for i, err := range b.errs {
		msgs[i] = err.Error()
	}

	return &multiErr{msg: strings.Join(msgs, " AND "), errs: b.errs}
}

type multiErr struct {
	msg  string
	errs []error
}

func (e *multiErr) Error() string {
	return e.msg
}

func (e *multiErr) Unwrap() []error {
	return e.errs
}

// fill copies src in dest. dest should be a pointer to src type.
func fill(src, dest any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d := reflect.TypeOf(dest)
			s := reflect.TypeOf(src)
			err = fmt.Errorf("the fill destination should be a pointer to a `%s`, but you used a `%s`", s, d)
		}
	}()

	if dest == nil {
		return errors.New("the fill destination can not be nil")
	}

	reflect.ValueOf(dest).Elem().Set(reflect.ValueOf(src))

	return err
}

// formatName returns a printable version of a scope name.
func formatName(name any) string {
	switch n := name.(type) {
	case string:
		return n
	case fmt.Stringer:
		return n.String()
	default:
		return fmt.Sprintf("%v", name)
	}
}
