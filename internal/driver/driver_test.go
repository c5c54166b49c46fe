package driver

import "testing"

func TestRecorderKeepsOrder(t *testing.T) {
	r := NewRecorder()
	_ = r.Move(10, 20)
	_ = r.Click()
	_ = r.Press("enter")

	got := r.Actions()
	want := []string{"move(10,20)", "click", "press(enter)"}
	if len(got) != len(want) {
		t.Fatalf("got %d actions, expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Fatalf("action %d = %s, expected %s", i, got[i], want[i])
		}
	}
}

func TestRecorderFailOn(t *testing.T) {
	r := NewRecorder()
	r.FailOn = 2
	if err := r.Move(1, 1); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if err := r.Click(); err == nil {
		t.Fatalf("expected injected failure on second call")
	}
	if n := len(r.Actions()); n != 1 {
		t.Fatalf("failed call recorded: %d actions", n)
	}
	r.Reset()
	if n := len(r.Actions()); n != 0 {
		t.Fatalf("Reset left %d actions", n)
	}
}
