package canon

import (
	"reflect"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Full-Body", "full body"},
		{"full body", "full body"},
		{"  Close-Up  ", "close up"},
		{"looking   at\tviewer", "looking at viewer"},
		{"SMILE", "smile"},
		{"-", ""},
		{"", ""},
		{"a--b", "a b"},
	}

	for _, tt := range tests {
		if got := Canonicalize(tt.in); got != tt.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	inputs := []string{"Full-Body", "  from   behind ", "Looking At Viewer", "close-up"}
	for _, in := range inputs {
		once := Canonicalize(in)
		twice := Canonicalize(once)
		if once != twice {
			t.Errorf("Canonicalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestCanonicalizeAll_DropsEmpties(t *testing.T) {
	got := CanonicalizeAll([]string{"Smile", "", "  ", "-", "From-Behind"})
	want := []string{"smile", "from behind"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CanonicalizeAll = %v, want %v", got, want)
	}
}

func TestDedupe_PreservesFirstSeenOrder(t *testing.T) {
	got := Dedupe([]string{"b", "a", "b", "c", "a"})
	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dedupe = %v, want %v", got, want)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"smile, front view, full body", []string{"smile", "front view", "full body"}},
		{"smile,,front view", []string{"smile", "front view"}},
		{"  smile  ", []string{"smile"}},
		{"", nil},
		{", ,", nil},
	}

	for _, tt := range tests {
		if got := SplitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJoinList_RoundTrip(t *testing.T) {
	raw := "smile, front view, full body"
	if got := JoinList(SplitList(raw)); got != raw {
		t.Errorf("round trip = %q, want %q", got, raw)
	}

	if got := JoinList([]string{" smile ", "", "frown"}); got != "smile, frown" {
		t.Errorf("JoinList = %q, want %q", got, "smile, frown")
	}
}
