// Package patch holds the tri-state field used by PATCH-style inputs.
package patch

// Field distinguishes:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Field[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Field[T] { return Field[T]{} }
func Null[T any]() Field[T]        { return Field[T]{specified: true, isNull: true} }
func Some[T any](v T) Field[T]     { return Field[T]{specified: true, value: v} }

func (f Field[T]) IsSpecified() bool { return f.specified }
func (f Field[T]) IsNull() bool      { return f.specified && f.isNull }
func (f Field[T]) Value() T          { return f.value }

// Apply returns the patched pointer value: cur when unspecified, nil when null, a pointer
// to the new value otherwise.
func Apply[T any](cur *T, f Field[T]) *T {
	switch {
	case !f.specified:
		return cur
	case f.isNull:
		return nil
	default:
		v := f.value
		return &v
	}
}
