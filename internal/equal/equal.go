// Package equal implements the structural comparison used to decide whether a
// remembered slice changed between two persistence cycles.
//
// IsDeepEqual applies these rules in order:
//
//  1. Identity: comparable values that are ==, the same map, the same slice
//     header.
//  2. Scalars and nil: equal only when both are NaN.
//  3. Different dynamic types are never equal.
//  4. Regular expressions: same source text and flags.
//  5. Byte slices: same bytes.
//  6. Slices and arrays: same length, elements equal in order.
//  7. Maps: same size, every key present in both, values equal.
//  8. time.Time: same instant.
//  9. Errors of the same type: same message and exported fields.
//  10. Functions, channels and unsafe pointers: reference only.
//  11. Pointers: pointees equal, unless the pointee is opaque.
//  12. Structs: every exported field equal.
//  13. Opaque structs (no exported fields): reference only.
//
// Two nil maps or slices are equal; a nil map is not equal to an empty one.
// Functions compare by code pointer, so two closures created from the same
// function literal are indistinguishable.
package equal

import (
	"bytes"
	"math"
	"reflect"
	"regexp"
	"time"
	"unsafe"
)

var (
	timeType   = reflect.TypeFor[time.Time]()
	regexpType = reflect.TypeFor[regexp.Regexp]()
	errorType  = reflect.TypeFor[error]()
)

// visit records a pair of references already under comparison. Revisiting a
// pair means the graph is cyclic; the pair is assumed equal so the walk
// terminates and the remaining branches decide the result.
type visit struct {
	a, b unsafe.Pointer
	typ  reflect.Type
}

// IsDeepEqual reports whether a and b are structurally indistinguishable.
// It never panics and terminates on cyclic values.
func IsDeepEqual(a, b any) bool {
	c := comparator{visited: make(map[visit]struct{})}
	return c.equal(reflect.ValueOf(a), reflect.ValueOf(b))
}

type comparator struct {
	visited map[visit]struct{}
}

func (c *comparator) equal(a, b reflect.Value) bool {
	a, b = unwrapInterface(a), unwrapInterface(b)

	// 1. identity
	if identical(a, b) {
		return true
	}

	// 2. scalars and nil
	if !a.IsValid() || !b.IsValid() || isScalar(a.Kind()) || isScalar(b.Kind()) {
		return isNaN(a) && isNaN(b)
	}

	// 3. constructor
	if a.Type() != b.Type() {
		return false
	}

	t := a.Type()
	switch {
	case t == regexpType:
		return regexpSource(a) == regexpSource(b)
	case t.Kind() == reflect.Pointer && t.Elem() == regexpType:
		if a.IsNil() || b.IsNil() {
			return false
		}
		return a.Interface().(*regexp.Regexp).String() == b.Interface().(*regexp.Regexp).String()
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		if a.IsNil() != b.IsNil() || a.Len() != b.Len() {
			return false
		}
		return bytes.Equal(a.Bytes(), b.Bytes())
	case t == timeType:
		if !a.CanInterface() || !b.CanInterface() {
			return false
		}
		return a.Interface().(time.Time).Equal(b.Interface().(time.Time))
	case t.Implements(errorType) && a.CanInterface() && b.CanInterface():
		return c.errorsEqual(a, b)
	}

	switch a.Kind() {
	case reflect.Slice:
		if a.IsNil() != b.IsNil() || a.Len() != b.Len() {
			return false
		}
		if c.seen(a.UnsafePointer(), b.UnsafePointer(), t) {
			return true
		}
		return c.elementsEqual(a, b)
	case reflect.Array:
		return c.elementsEqual(a, b)
	case reflect.Map:
		if a.IsNil() != b.IsNil() || a.Len() != b.Len() {
			return false
		}
		if c.seen(a.UnsafePointer(), b.UnsafePointer(), t) {
			return true
		}
		iter := a.MapRange()
		for iter.Next() {
			bv := b.MapIndex(iter.Key())
			if !bv.IsValid() || !c.equal(iter.Value(), bv) {
				return false
			}
		}
		return true
	case reflect.Func:
		return a.Pointer() == b.Pointer()
	case reflect.Chan, reflect.UnsafePointer:
		return false
	case reflect.Pointer:
		if a.IsNil() || b.IsNil() {
			return false
		}
		if isOpaque(t.Elem()) {
			return false
		}
		if c.seen(a.UnsafePointer(), b.UnsafePointer(), t) {
			return true
		}
		return c.equal(a.Elem(), b.Elem())
	case reflect.Struct:
		if isOpaque(t) {
			return false
		}
		return c.fieldsEqual(a, b)
	}
	return false
}

func (c *comparator) seen(a, b unsafe.Pointer, t reflect.Type) bool {
	v := visit{a: a, b: b, typ: t}
	if _, ok := c.visited[v]; ok {
		return true
	}
	c.visited[v] = struct{}{}
	return false
}

func (c *comparator) elementsEqual(a, b reflect.Value) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		if !c.equal(a.Index(i), b.Index(i)) {
			return false
		}
	}
	return true
}

func (c *comparator) fieldsEqual(a, b reflect.Value) bool {
	t := a.Type()
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}
		if !c.equal(a.Field(i), b.Field(i)) {
			return false
		}
	}
	return true
}

// errorsEqual compares two non-identical errors of the same type by message,
// then by exported fields of the underlying struct when there is one.
func (c *comparator) errorsEqual(a, b reflect.Value) bool {
	if a.Kind() == reflect.Pointer && (a.IsNil() || b.IsNil()) {
		return false
	}
	am, aok := errorMessage(a)
	bm, bok := errorMessage(b)
	if !aok || !bok || am != bm {
		return false
	}
	if a.Kind() == reflect.Pointer {
		if c.seen(a.UnsafePointer(), b.UnsafePointer(), a.Type()) {
			return true
		}
		a, b = a.Elem(), b.Elem()
	}
	if a.Kind() != reflect.Struct {
		return c.equalUnderlying(a, b)
	}
	return c.fieldsEqual(a, b)
}

// equalUnderlying compares non-struct error values (for example a named
// string or map type) by their underlying representation.
func (c *comparator) equalUnderlying(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Slice, reflect.Array:
		return c.elementsEqual(a, b)
	case reflect.Map:
		if a.Len() != b.Len() {
			return false
		}
		iter := a.MapRange()
		for iter.Next() {
			bv := b.MapIndex(iter.Key())
			if !bv.IsValid() || !c.equal(iter.Value(), bv) {
				return false
			}
		}
		return true
	}
	// Scalar kinds already failed identity and matched by message.
	return true
}

func errorMessage(v reflect.Value) (msg string, ok bool) {
	defer func() {
		if recover() != nil {
			msg, ok = "", false
		}
	}()
	return v.Interface().(error).Error(), true
}

func regexpSource(v reflect.Value) string {
	if !v.CanInterface() {
		return ""
	}
	re := v.Interface().(regexp.Regexp)
	return re.String()
}

func unwrapInterface(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func identical(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return !a.IsValid() && !b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}
	switch a.Kind() {
	case reflect.Map:
		return a.UnsafePointer() == b.UnsafePointer()
	case reflect.Slice:
		return a.UnsafePointer() == b.UnsafePointer() && a.Len() == b.Len() && a.IsNil() == b.IsNil()
	case reflect.Func:
		return a.IsNil() && b.IsNil()
	}
	if !a.Comparable() || !b.Comparable() {
		return false
	}
	return a.Equal(b)
}

func isScalar(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	}
	return false
}

func isNaN(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return math.IsNaN(v.Float())
	case reflect.Complex64, reflect.Complex128:
		z := v.Complex()
		return math.IsNaN(real(z)) || math.IsNaN(imag(z))
	}
	return false
}

// isOpaque reports whether t is a struct exposing no exported fields. Such
// values (mutexes, buffers, weak pointers) have no observable structure and
// are compared by reference only.
func isOpaque(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t == timeType || t == regexpType {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			return false
		}
	}
	return t.NumField() > 0
}
