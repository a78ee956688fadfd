package snapshot

import "testing"

func TestWindowRolls(t *testing.T) {
	w := newWindow(3)
	for _, v := range []float64{1, 2, 3, 4} {
		w.Add(v)
	}
	got := w.Values()
	if len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Fatalf("unexpected window contents: %v", got)
	}
}

func TestWindowCopiesOut(t *testing.T) {
	w := newWindow(4)
	w.Add(1)
	vals := w.Values()
	vals[0] = 99
	if w.Values()[0] != 1 {
		t.Fatal("Values must return a copy")
	}
}
