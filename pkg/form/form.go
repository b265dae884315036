package form

import (
	"context"
	"maps"
	"sync"
)

// Values holds field name -> value. Text inputs store strings, checkboxes bools.
type Values map[string]any

// String returns the field as a string, or "" when absent or not a string.
func (v Values) String(field string) string {
	s, _ := v[field].(string)
	return s
}

// Bool returns the field as a bool, or false when absent or not a bool.
func (v Values) Bool(field string) bool {
	b, _ := v[field].(bool)
	return b
}

// Errors maps field name -> message. Empty messages mean "no error".
type Errors map[string]string

// HasAny reports whether at least one message is non-empty.
func (e Errors) HasAny() bool {
	for _, msg := range e {
		if msg != "" {
			return true
		}
	}
	return false
}

// ValidateFunc inspects all values and returns the field errors found.
type ValidateFunc func(Values) Errors

// SubmitFunc receives a snapshot of the values on a valid submission.
type SubmitFunc func(ctx context.Context, values Values) error

// InputType distinguishes checkbox inputs, whose value is Checked.
type InputType string

const (
	InputText     InputType = "text"
	InputCheckbox InputType = "checkbox"
)

// Input is a change event for one field.
type Input struct {
	Name    string
	Type    InputType
	Value   string
	Checked bool
}

// Controller owns the state of one form. All methods are safe for concurrent use.
type Controller struct {
	mu         sync.RWMutex
	initial    Values
	values     Values
	errors     Errors
	touched    map[string]bool
	submitting bool
	validate   ValidateFunc
}

// New creates a controller. validate may be nil.
func New(initial Values, validate ValidateFunc) *Controller {
	if initial == nil {
		initial = Values{}
	}
	return &Controller{
		initial:  maps.Clone(initial),
		values:   maps.Clone(initial),
		errors:   Errors{},
		touched:  map[string]bool{},
		validate: validate,
	}
}

// HandleChange merges one field's new value and clears that field's error.
func (c *Controller) HandleChange(in Input) {
	var value any = in.Value
	if in.Type == InputCheckbox {
		value = in.Checked
	}
	c.SetValue(in.Name, value)
}

// SetValue is HandleChange for callers that already hold a typed value.
func (c *Controller) SetValue(field string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[field] = value
	delete(c.errors, field)
}

// HandleBlur marks the field touched and, with a validator configured, sets
// the field's error if the validator reports one. An existing error is not
// cleared here; HandleChange does that.
func (c *Controller) HandleBlur(field string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.touched[field] = true
	if c.validate == nil {
		return
	}
	if msg := c.validate(maps.Clone(c.values))[field]; msg != "" {
		c.errors[field] = msg
	}
}

// HandleSubmit wraps onSubmit. The returned handler validates all values,
// marks every field touched and returns ErrInvalid without calling onSubmit
// when any error is present. The submitting flag is set for the duration of
// the call and cleared on return, error or panic.
func (c *Controller) HandleSubmit(onSubmit SubmitFunc) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		c.mu.Lock()
		c.submitting = true
		c.mu.Unlock()

		defer func() {
			c.mu.Lock()
			c.submitting = false
			c.mu.Unlock()
		}()

		snapshot, ok := c.validateAll()
		if !ok {
			return ErrInvalid
		}
		if onSubmit == nil {
			return nil
		}
		return onSubmit(ctx, snapshot)
	}
}

func (c *Controller) validateAll() (Values, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := maps.Clone(c.values)
	if c.validate == nil {
		return snapshot, true
	}

	found := c.validate(maps.Clone(c.values))
	c.errors = Errors{}
	for field, msg := range found {
		if msg != "" {
			c.errors[field] = msg
		}
	}
	for field := range c.values {
		c.touched[field] = true
	}
	for field := range found {
		c.touched[field] = true
	}
	return snapshot, len(c.errors) == 0
}

// MergeErrors sets server-reported field errors on top of the current ones.
func (c *Controller) MergeErrors(errs map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for field, msg := range errs {
		if msg == "" {
			continue
		}
		c.errors[field] = msg
		c.touched[field] = true
	}
}

// Reset restores the initial values and clears errors, touched and submitting.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values = maps.Clone(c.initial)
	c.errors = Errors{}
	c.touched = map[string]bool{}
	c.submitting = false
}

// Values returns a copy of the current values.
func (c *Controller) Values() Values {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.values)
}

// Errors returns a copy of the current errors.
func (c *Controller) Errors() Errors {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.errors)
}

func (c *Controller) Error(field string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errors[field]
}

func (c *Controller) Touched(field string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.touched[field]
}

func (c *Controller) IsSubmitting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.submitting
}
