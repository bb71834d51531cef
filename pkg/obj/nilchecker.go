package obj

import (
	"reflect"
)

// IsNil reports whether an interface value is nil, including the
// typed-nil case where the interface carries a nil pointer. Collaborator
// slots (resolver, archive openers, key files) accept interfaces, so the
// plain == nil test is not enough.
func IsNil(what interface{}) bool {
	if what == nil {
		return true
	}

	switch reflect.ValueOf(what).Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return reflect.ValueOf(what).IsNil()
	default:
		return false
	}
}
