// Package nilcheck detects nil values hidden behind non-nil interfaces, such
// as a nil *Engine passed as an engine.Engine or a nil WorkFunc passed as Work.
package nilcheck

import "reflect"

// Interface reports whether value is nil or an interface wrapping a nil
// pointer, func, map, slice, channel or interface.
func Interface(value any) bool {
	if value == nil {
		return true
	}

	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
