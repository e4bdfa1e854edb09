package httpcontroller

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tphakala/console-panel/internal/datastore/repository"
	"github.com/tphakala/console-panel/internal/errors"
)

// form reads a submitted url.Values into typed patch members. A field
// missing from the submission yields nil, so the patch leaves that column
// alone. Parse failures are collected and reported together by err.
type form struct {
	values url.Values
	errs   []string
}

func newForm(values url.Values) *form {
	return &form{values: values}
}

func (f *form) has(name string) bool {
	_, ok := f.values[name]
	return ok
}

// last returns the last submitted value. Checkboxes post a hidden "false"
// before the checkbox itself, so the last value is the checked state.
func (f *form) last(name string) string {
	vs := f.values[name]
	if len(vs) == 0 {
		return ""
	}
	return strings.TrimSpace(vs[len(vs)-1])
}

func (f *form) fail(format string, args ...any) {
	f.errs = append(f.errs, fmt.Sprintf(format, args...))
}

func (f *form) str(name string) *string {
	if !f.has(name) {
		return nil
	}
	v := f.last(name)
	return &v
}

// strOrNil is str with an empty value treated as absent.
func (f *form) strOrNil(name string) *string {
	v := f.str(name)
	if v == nil || *v == "" {
		return nil
	}
	return v
}

func (f *form) float(name, label string) *float64 {
	if !f.has(name) || f.last(name) == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(f.last(name), ",", "."), 64)
	if err != nil {
		f.fail("%s must be a number", label)
		return nil
	}
	return &v
}

// percent parses a 0-100 value into the stored 0.0-1.0 volume scale.
func (f *form) percent(name, label string) *float64 {
	if !f.has(name) || f.last(name) == "" {
		return nil
	}
	p, err := strconv.Atoi(f.last(name))
	if err != nil || p < 0 || p > 100 {
		f.fail("%s must be a whole number between 0 and 100", label)
		return nil
	}
	v := float64(p) / 100
	return &v
}

func (f *form) boolean(name string) *bool {
	if !f.has(name) {
		return nil
	}
	v := f.last(name)
	b := v == "true" || v == "on" || v == "1"
	return &b
}

// id parses a select value; an empty selection yields nil.
func (f *form) id(name, label string) *uint {
	if !f.has(name) || f.last(name) == "" {
		return nil
	}
	v, err := strconv.ParseUint(f.last(name), 10, 0)
	if err != nil || v == 0 {
		f.fail("%s is not a valid selection", label)
		return nil
	}
	id := uint(v)
	return &id
}

// ref parses an optional select value; the empty option clears the reference.
func (f *form) ref(name, label string) *repository.Ref {
	if !f.has(name) {
		return nil
	}
	if f.last(name) == "" {
		return repository.ClearRef()
	}
	id := f.id(name, label)
	if id == nil {
		return nil
	}
	return repository.SetRef(*id)
}

// version is the optimistic-lock token rendered into edit forms.
func (f *form) version() *uint {
	if !f.has("version") || f.last("version") == "" {
		return nil
	}
	v, err := strconv.ParseUint(f.last("version"), 10, 0)
	if err != nil {
		f.fail("the form is damaged, reload the page")
		return nil
	}
	ver := uint(v)
	return &ver
}

// required checks that the named fields are present and not blank. On
// update only present fields are checked.
func (f *form) required(creating bool, fields []field) {
	for _, fd := range fields {
		if !fd.Required {
			continue
		}
		if !f.has(fd.Name) {
			if creating {
				f.fail("%s is required", fd.Label)
			}
			continue
		}
		if f.last(fd.Name) == "" {
			f.fail("%s is required", fd.Label)
		}
	}
}

// err returns the collected problems as one validation error.
func (f *form) err() error {
	if len(f.errs) == 0 {
		return nil
	}
	return errors.New(fmt.Errorf("%w: %s", repository.ErrInvalidInput, strings.Join(f.errs, "; "))).
		Component("httpcontroller").
		Category(errors.CategoryValidation).
		Context("fields", len(f.errs)).
		Build()
}

// flat returns the submitted values for re-rendering, minus secrets.
func (f *form) flat() map[string]string {
	out := make(map[string]string, len(f.values))
	for name := range f.values {
		if name == "password" || strings.HasPrefix(name, "_") {
			continue
		}
		out[name] = f.last(name)
	}
	return out
}
