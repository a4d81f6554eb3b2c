package ambientdb

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ConstructorError represents a constructor whose shape cannot produce instances.
type ConstructorError struct {
	Type   string
	Reason string
}

func (e *ConstructorError) Error() string {
	return fmt.Sprintf("invalid constructor for type %s: %s", e.Type, e.Reason)
}

// checkConstructorShape accepts func() T and func() (T, error).
func checkConstructorShape(capability reflect.Type, ctorType reflect.Type) error {
	if ctorType.Kind() != reflect.Func {
		return &ConstructorError{Type: capability.String(), Reason: "got " + ctorType.String() + ", want a function"}
	}
	if ctorType.NumIn() != 0 {
		return &ConstructorError{Type: capability.String(), Reason: "constructor must not take arguments"}
	}
	switch ctorType.NumOut() {
	case 1:
		return nil
	case 2:
		if ctorType.Out(1) != errorType {
			return &ConstructorError{Type: capability.String(), Reason: "second result must be error"}
		}
		return nil
	default:
		return &ConstructorError{Type: capability.String(), Reason: "constructor must return T or (T, error)"}
	}
}

// checkConformance verifies that produced satisfies capability.
// For interface capabilities every method is compared by name and signature, and the
// first mismatch is reported.
func checkConformance(capability, produced reflect.Type) error {
	if capability.Kind() != reflect.Interface {
		if !produced.AssignableTo(capability) {
			return &TypeMismatchError{Expected: capability.String(), Got: produced.String()}
		}
		return nil
	}

	for i := 0; i < capability.NumMethod(); i++ {
		want := capability.Method(i)

		got, ok := produced.MethodByName(want.Name)
		if !ok {
			return &ConformanceError{
				Capability:     capability.String(),
				Implementation: produced.String(),
				Member:         want.Name,
				Want:           want.Type.String(),
			}
		}

		signature := methodSignature(produced, got)
		if signature != want.Type {
			return &ConformanceError{
				Capability:     capability.String(),
				Implementation: produced.String(),
				Member:         want.Name,
				Want:           want.Type.String(),
				Got:            signature.String(),
			}
		}
	}

	if !produced.Implements(capability) {
		return &TypeMismatchError{Expected: capability.String(), Got: produced.String()}
	}
	return nil
}

// methodSignature returns the method type without its receiver.
func methodSignature(owner reflect.Type, m reflect.Method) reflect.Type {
	if owner.Kind() == reflect.Interface {
		return m.Type
	}

	in := make([]reflect.Type, 0, m.Type.NumIn()-1)
	for i := 1; i < m.Type.NumIn(); i++ {
		in = append(in, m.Type.In(i))
	}
	out := make([]reflect.Type, 0, m.Type.NumOut())
	for i := 0; i < m.Type.NumOut(); i++ {
		out = append(out, m.Type.Out(i))
	}
	return reflect.FuncOf(in, out, m.Type.IsVariadic())
}
