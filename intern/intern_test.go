package intern_test

import (
	"testing"

	"kirin/intern"
)

type handle uint32

func TestInternDedup(t *testing.T) {
	tab := intern.NewTable[string, handle]()
	a := tab.Intern("alpha")
	b := tab.Intern("beta")
	a2 := tab.Intern("alpha")

	if a == 0 || b == 0 {
		t.Fatalf("handles must not use the reserved sentinel: %d, %d", a, b)
	}
	if a != a2 {
		t.Fatalf("re-interning must return the same handle: %d vs %d", a, a2)
	}
	if a == b {
		t.Fatal("distinct keys share a handle")
	}
	if tab.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tab.Len())
	}
}

func TestLookupResolve(t *testing.T) {
	tab := intern.NewTable[string, handle]()
	h := tab.Intern("name")

	if got, ok := tab.Lookup(h); !ok || got != "name" {
		t.Fatalf("Lookup = (%q, %v)", got, ok)
	}
	if _, ok := tab.Lookup(0); ok {
		t.Fatal("Lookup of the null handle must fail")
	}
	if _, ok := tab.Lookup(h + 100); ok {
		t.Fatal("Lookup past the issued range must fail")
	}
	if got, ok := tab.Resolve("name"); !ok || got != h {
		t.Fatalf("Resolve = (%d, %v)", got, ok)
	}
	if _, ok := tab.Resolve("missing"); ok {
		t.Fatal("Resolve of an unseen key must fail")
	}
}

func TestInsertionOrder(t *testing.T) {
	tab := intern.NewTable[string, handle]()
	keys := []string{"c", "a", "b", "a", "d"}
	for _, k := range keys {
		tab.Intern(k)
	}
	var got []string
	for _, k := range tab.All() {
		got = append(got, k)
	}
	want := []string{"c", "a", "b", "d"}
	if len(got) != len(want) {
		t.Fatalf("All = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("All = %v, want %v", got, want)
		}
	}
}

func TestStructuredKeys(t *testing.T) {
	type key struct {
		Name  string
		Arity int
	}
	tab := intern.NewTable[key, handle]()
	a := tab.Intern(key{Name: "f", Arity: 2})
	b := tab.Intern(key{Name: "f", Arity: 3})
	a2 := tab.Intern(key{Name: "f", Arity: 2})
	if a == b || a != a2 {
		t.Fatalf("structured keys mishandled: %d, %d, %d", a, b, a2)
	}
}
