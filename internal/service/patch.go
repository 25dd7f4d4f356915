package service

import "encoding/json"

// Field is a tri-state patch value: absent, explicit null, or set.
// encoding/json only invokes UnmarshalJSON for keys present in the
// payload, which is what makes "absent" distinguishable from "null".
type Field[T any] struct {
	present bool
	value   *T
}

func Set[T any](v T) Field[T] {
	return Field[T]{present: true, value: &v}
}

func Null[T any]() Field[T] {
	return Field[T]{present: true}
}

// Provided reports whether the field appeared in the payload at all.
func (f Field[T]) Provided() bool {
	return f.present
}

// Get returns the value pointer; nil means the field was set to null.
// Only meaningful when Provided is true.
func (f Field[T]) Get() *T {
	return f.value
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.present = true
	if string(b) == "null" {
		f.value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f.value = &v
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.present || f.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*f.value)
}
