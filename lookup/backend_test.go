package lookup

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ferro-labs/faceslots/providers"
)

func TestNewBackend_Registry(t *testing.T) {
	b, err := NewBackend("memory", "")
	if err != nil {
		t.Fatalf("new memory backend: %v", err)
	}
	if b.Name() != "memory" {
		t.Errorf("name = %q", b.Name())
	}

	if _, err := NewBackend("etcd", ""); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("got %v, want ErrUnknownBackend", err)
	}
	if _, err := NewBackend("postgres", ""); err == nil {
		t.Error("postgres without dsn should fail")
	}

	want := []string{"memory", "postgres", "sqlite"}
	if diff := cmp.Diff(want, Backends()); diff != "" {
		t.Errorf("Backends() mismatch (-want +got):\n%s", diff)
	}
}

// exerciseBackend runs the same contract checks against any Backend.
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	if _, known, err := b.Lookup(ctx, testFace, 0); err != nil || known {
		t.Fatalf("fresh slot: known=%v err=%v, want unknown", known, err)
	}

	if err := b.Declare(ctx, testFace, 0, 1); err != nil {
		t.Fatalf("declare: %v", err)
	}
	info, known, err := b.Lookup(ctx, testFace, 0)
	if err != nil || !known || info != nil {
		t.Fatalf("declared slot: info=%v known=%v err=%v", info, known, err)
	}

	weather := &providers.Info{
		Name:      "weather",
		Component: "com.example.weather/.Svc",
		Icon:      "ic_weather",
		Types:     []providers.Type{providers.TypeShortText, providers.TypeSmallImage},
	}
	if err := b.Bind(ctx, testFace, 1, weather); err != nil {
		t.Fatalf("bind: %v", err)
	}
	got, known, err := b.Lookup(ctx, testFace, 1)
	if err != nil || !known {
		t.Fatalf("bound slot: known=%v err=%v", known, err)
	}
	if diff := cmp.Diff(weather, got); diff != "" {
		t.Errorf("bound provider mismatch (-want +got):\n%s", diff)
	}

	// Declare must not clobber an existing binding.
	if err := b.Declare(ctx, testFace, 1); err != nil {
		t.Fatalf("re-declare: %v", err)
	}
	if got, _, _ := b.Lookup(ctx, testFace, 1); !got.Equal(weather) {
		t.Errorf("declare cleared binding: %v", got)
	}

	if err := b.Bind(ctx, testFace, 1, nil); err != nil {
		t.Fatalf("unbind: %v", err)
	}
	if got, known, _ := b.Lookup(ctx, testFace, 1); got != nil || !known {
		t.Errorf("unbound slot: info=%v known=%v", got, known)
	}

	if _, known, _ := b.Lookup(ctx, "other.face", 1); known {
		t.Error("bindings must be scoped per watch face")
	}
}

func TestMemoryBackend(t *testing.T) {
	b := NewMemory()
	if err := b.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()
	exerciseBackend(t, b)
}

func TestSQLiteBackend(t *testing.T) {
	b := NewSQLite(filepath.Join(t.TempDir(), "bindings.db"))
	if err := b.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = b.Close()
	})
	exerciseBackend(t, b)
}

func TestSQLiteBackend_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindings.db")
	ctx := context.Background()

	first := NewSQLite(path)
	if err := first.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Bind(ctx, testFace, 3, &providers.Info{Name: "battery", Component: "c"}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	_ = first.Close()

	second := NewSQLite(path)
	if err := second.Open(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	got, known, err := second.Lookup(ctx, testFace, 3)
	if err != nil || !known || got == nil || got.Name != "battery" {
		t.Fatalf("after reopen: info=%v known=%v err=%v", got, known, err)
	}
}

func TestWithDeclared_DeclaresOnOpen(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	b := WithDeclared(mem, testFace, 0, 2)

	if b.Name() != "memory" {
		t.Errorf("name = %q", b.Name())
	}
	if _, known, _ := mem.Lookup(ctx, testFace, 0); known {
		t.Fatal("slot declared before Open")
	}
	if err := b.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, id := range []int{0, 2} {
		if _, known, _ := b.Lookup(ctx, testFace, id); !known {
			t.Errorf("slot %d not declared", id)
		}
	}
	if _, known, _ := b.Lookup(ctx, testFace, 1); known {
		t.Error("slot 1 should stay unknown")
	}
}
