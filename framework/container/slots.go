package container

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"

	"github.com/spf13/cast"
)

// Assigner is implemented by services that accept their dependencies,
// parameters and notifiers by slot name.
type Assigner interface {
	Assign(slot string, value any) error
}

// Slots is an embeddable Assigner that keeps every wired value by name.
//
//	type Foo struct{ container.Slots }
//
//	foo, _ := container.Resolve[*Foo](c, "_foo")
//	bar := foo.Slot("_bar").(*Bar)
type Slots struct {
	values map[string]any
}

// Assign stores value under slot.
func (s *Slots) Assign(slot string, value any) error {
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[slot] = value
	return nil
}

// Slot returns the value assigned to name, or nil.
func (s *Slots) Slot(name string) any {
	return s.values[name]
}

// Lookup returns the value assigned to name and whether it was assigned.
func (s *Slots) Lookup(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// SlotNames returns the assigned slot names, sorted.
func (s *Slots) SlotNames() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Slots) String(name string) string { return cast.ToString(s.values[name]) }
func (s *Slots) Int(name string) int       { return cast.ToInt(s.values[name]) }
func (s *Slots) Bool(name string) bool     { return cast.ToBool(s.values[name]) }

func (s *Slots) Duration(name string) time.Duration {
	return cast.ToDuration(s.values[name])
}

// Notify raises event through the notifier the container assigned to
// "_notify<event>".
func (s *Slots) Notify(event string, args ...any) error {
	slot := NotifierSlot(event)
	notify, ok := s.values[slot].(Notifier)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnassignable, slot)
	}
	return notify(args...)
}

// NotifierSlot returns the slot name a source's notifier for event is
// assigned to.
func NotifierSlot(event string) string { return "_notify" + event }

// ── Assignment ────────────────────────────────────────────────────────────────

// Assign puts value into instance's slot: through Assigner when implemented,
// otherwise onto the exported struct field tagged `ioc:"<slot>"`.
func Assign(instance any, slot string, value any) error {
	if a, ok := instance.(Assigner); ok {
		return a.Assign(slot, value)
	}

	field, err := taggedField(instance, slot)
	if err != nil {
		return err
	}
	return setField(field, slot, value)
}

func taggedField(instance any, slot string) (reflect.Value, error) {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w %q: %T is neither an Assigner nor a struct pointer", ErrUnassignable, slot, instance)
	}

	v = v.Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("ioc") != slot {
			continue
		}
		if !v.Field(i).CanSet() {
			return reflect.Value{}, fmt.Errorf("%w %q: field %s.%s is unexported", ErrUnassignable, slot, t.Name(), t.Field(i).Name)
		}
		return v.Field(i), nil
	}
	return reflect.Value{}, fmt.Errorf("%w %q on %T", ErrUnassignable, slot, instance)
}

func setField(field reflect.Value, slot string, value any) error {
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return nil
	}

	converted, err := convertScalar(value, field.Type())
	if err != nil {
		return fmt.Errorf("%w %q: cannot use %T as %s: %v", ErrUnassignable, slot, value, field.Type(), err)
	}
	if err := checkRange(field, converted); err != nil {
		return fmt.Errorf("%w %q: cannot use %v as %s: %v", ErrUnassignable, slot, value, field.Type(), err)
	}
	field.Set(reflect.ValueOf(converted).Convert(field.Type()))
	return nil
}

// checkRange rejects converted values the field's kind cannot hold exactly.
func checkRange(field reflect.Value, converted any) error {
	switch n := converted.(type) {
	case int64:
		if field.OverflowInt(n) {
			return fmt.Errorf("%d overflows %s", n, field.Kind())
		}
	case uint64:
		if field.OverflowUint(n) {
			return fmt.Errorf("%d overflows %s", n, field.Kind())
		}
	case float64:
		if field.OverflowFloat(n) {
			return fmt.Errorf("%g overflows %s", n, field.Kind())
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// convertScalar converts configuration-style values (YAML numbers, env
// strings) to the scalar kind of a tagged field.
func convertScalar(value any, to reflect.Type) (any, error) {
	if to == durationType {
		return cast.ToDurationE(value)
	}
	switch to.Kind() {
	case reflect.String:
		return cast.ToStringE(value)
	case reflect.Bool:
		return cast.ToBoolE(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if err := integral(value); err != nil {
			return nil, err
		}
		return cast.ToInt64E(value)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if err := integral(value); err != nil {
			return nil, err
		}
		return cast.ToUint64E(value)
	case reflect.Float32, reflect.Float64:
		return cast.ToFloat64E(value)
	}
	return nil, fmt.Errorf("unsupported field kind %s", to.Kind())
}

// integral rejects fractional floats, which cast would truncate.
func integral(value any) error {
	var f float64
	switch v := value.(type) {
	case float32:
		f = float64(v)
	case float64:
		f = v
	default:
		return nil
	}
	if f != math.Trunc(f) {
		return fmt.Errorf("%g is not a whole number", f)
	}
	return nil
}
