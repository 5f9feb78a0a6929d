// Package testutil reúne asserts y fixtures compartidos por los tests.
package testutil

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

// AssertEqual compara con == sobre interface{}: los tipos deben coincidir
// exactamente (int no es igual a int64).
func AssertEqual(t *testing.T, got, want interface{}, msg string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %v (%T), want %v (%T)", msg, got, got, want, want)
	}
}

func AssertNotEqual(t *testing.T, got, other interface{}, msg string) {
	t.Helper()
	if got == other {
		t.Errorf("%s: both values are %v", msg, got)
	}
}

// AssertNotNil también rechaza punteros, mapas o slices nil envueltos en
// la interfaz.
func AssertNotNil(t *testing.T, got interface{}, msg string) {
	t.Helper()
	if isNil(got) {
		t.Errorf("%s: value is nil", msg)
	}
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: wanted an error", msg)
	}
}

func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: %v", msg, err)
	}
}

func AssertTrue(t *testing.T, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Errorf("%s: expected true, got false", msg)
	}
}

func AssertFalse(t *testing.T, cond bool, msg string) {
	t.Helper()
	if cond {
		t.Errorf("%s: expected false, got true", msg)
	}
}

// AssertContains busca element como substring de un string o como
// elemento de un []string.
func AssertContains(t *testing.T, container interface{}, element string, msg string) {
	t.Helper()
	var found bool
	switch c := container.(type) {
	case string:
		found = strings.Contains(c, element)
	case []string:
		for _, item := range c {
			if item == element {
				found = true
				break
			}
		}
	default:
		t.Errorf("%s: cannot search a %T", msg, container)
		return
	}
	if !found {
		t.Errorf("%s: %q not found in %q", msg, element, container)
	}
}

// AssertLen acepta cualquier valor con len(): slices, arrays, mapas,
// strings y canales.
func AssertLen(t *testing.T, container interface{}, want int, msg string) {
	t.Helper()
	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String, reflect.Chan:
	default:
		t.Errorf("%s: %T has no length", msg, container)
		return
	}
	if n := rv.Len(); n != want {
		t.Errorf("%s: len = %d, want %d", msg, n, want)
	}
}

// UnmarshalJSON decodifica data en v.
func UnmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
