package accountid

import (
	"strings"
	"testing"
)

func TestNew_LengthAndAlphabet(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := New()
		if len(id) != Length {
			t.Fatalf("len(New()) = %d, want %d", len(id), Length)
		}
		for _, c := range id {
			if !strings.ContainsRune(Alphabet, c) {
				t.Fatalf("id %q contains %q outside the alphabet", id, c)
			}
		}
	}
}

func TestNew_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate id %q after %d draws", id, i)
		}
		seen[id] = true
	}
}
