package ticket

import (
	"context"
	"reflect"
	"testing"
)

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, ok := r.Lookup("ticket"); ok {
		t.Fatal("empty registry resolved a handler")
	}

	called := false
	r.Register("ticket", func(ctx context.Context, ev *Event) error {
		called = true
		return nil
	})
	handler, ok := r.Lookup("ticket")
	if !ok {
		t.Fatal("registered handler not found")
	}
	if err := handler(context.Background(), nil); err != nil || !called {
		t.Fatalf("handler err=%v called=%v", err, called)
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	noop := func(ctx context.Context, ev *Event) error { return nil }
	r.Register("panel2", noop)
	r.Register("ticket", noop)
	r.Register("panel1", noop)

	want := []string{"panel1", "panel2", "ticket"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
}

func TestRouterSelfRegistersCommands(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	NewRouter(testLogger(), newFakeSession(), dropdownConfig(), nil, registry)

	want := []string{"panel1", "panel2", "ticket"}
	if got := registry.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("registered commands = %v, want %v", got, want)
	}
}
