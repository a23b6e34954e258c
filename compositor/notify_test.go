// This file is part of xcompositor.
// Please see the LICENSE file for copyright information.

package compositor

import "testing"

func TestSignalDeliversToAllConnectedSlots(t *testing.T) {
	var sig Signal[int]
	var a, b int
	sig.Connect(func(v int) { a = v })
	sig.Connect(func(v int) { b = v * 2 })

	sig.Emit(21)

	if a != 21 || b != 42 {
		t.Errorf("got a=%d b=%d, want a=21 b=42", a, b)
	}
}

func TestSignalEmitWithoutConnectionsIsANoop(t *testing.T) {
	var sig Signal[Void]
	sig.Emit(Void{}) // must not panic
}

func TestSignalDeliversInConnectOrder(t *testing.T) {
	var sig Signal[int]
	var order []int
	sig.Connect(func(int) { order = append(order, 1) })
	sig.Connect(func(int) { order = append(order, 2) })
	sig.Connect(func(int) { order = append(order, 3) })

	sig.Emit(0)

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}
