package core

import (
	"reflect"
	"testing"
)

func TestTeardownUnwindsInReverse(t *testing.T) {
	var order []string
	td := &Teardown{}
	for _, name := range []string{"instance", "device", "swapchain"} {
		name := name
		td.Push(name, func() { order = append(order, name) })
	}
	if td.Len() != 3 {
		t.Fatalf("Len = %d, want 3", td.Len())
	}

	td.Unwind()
	want := []string{"swapchain", "device", "instance"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}

	// a second unwind must not release anything twice
	td.Unwind()
	if len(order) != 3 {
		t.Fatalf("releases ran again: %v", order)
	}
}
