package backend

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReadWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	value := map[string]any{"name": "Deriv", "headcount": float64(1482)}
	if err := s.Write(ctx, "company", value); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := s.Read(ctx, "company")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("got %T, want map", got)
	}
	if m["name"] != "Deriv" {
		t.Errorf("name = %v", m["name"])
	}
	if m["headcount"] != float64(1482) {
		t.Errorf("headcount = %v", m["headcount"])
	}
}

func TestRead_MissingPathIsNotAnError(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Read(context.Background(), "no/such/path")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestRead_AssemblesChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Write(ctx, "policies/annual-leave", "30 days per year."); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, "policies/remote-work", "Hybrid, 3 days in office."); err != nil {
		t.Fatal(err)
	}

	got, err := s.Read(ctx, "policies")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("got %T, want map of children", got)
	}
	if len(m) != 2 {
		t.Fatalf("children = %d, want 2: %v", len(m), m)
	}
	if m["annual-leave"] != "30 days per year." {
		t.Errorf("annual-leave = %v", m["annual-leave"])
	}
}

func TestRead_ExactPathWinsOverChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Write(ctx, "policies", "the whole handbook"); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, "policies/visa", "visa details"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Read(ctx, "policies")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got != "the whole handbook" {
		t.Errorf("got %v, want exact record", got)
	}
}

func TestWrite_Upserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Write(ctx, "kpis", map[string]any{"open_roles": float64(4)}); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, "kpis", map[string]any{"open_roles": float64(7)}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Read(ctx, "kpis")
	if err != nil {
		t.Fatal(err)
	}
	if got.(map[string]any)["open_roles"] != float64(7) {
		t.Errorf("got %v after upsert", got)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestDeletePrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, p := range []string{"policies/a", "policies/b", "policy-adjacent"} {
		if err := s.Write(ctx, p, "x"); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.DeletePrefix(ctx, "policies"); err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}

	got, err := s.Read(ctx, "policies")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("policies subtree survived delete: %v", got)
	}

	// Only "prefix/" rows are removed, not similarly named siblings.
	sibling, err := s.Read(ctx, "policy-adjacent")
	if err != nil {
		t.Fatal(err)
	}
	if sibling != "x" {
		t.Errorf("sibling record lost: %v", sibling)
	}
}

func TestSeedIfEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.SeedIfEmpty(ctx)
	if err != nil {
		t.Fatalf("SeedIfEmpty failed: %v", err)
	}
	if n == 0 {
		t.Fatal("empty store was not seeded")
	}

	// Seeding is one-shot: a second call must be a no-op.
	again, err := s.SeedIfEmpty(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again != 0 {
		t.Errorf("second seed wrote %d records, want 0", again)
	}

	// The dataset must cover every path the query tools read.
	for _, path := range []string{
		"company", "employees", "alerts", "compliance", "contracts",
		"calendar", "policies", "clause_templates", "kpis",
	} {
		got, err := s.Read(ctx, path)
		if err != nil {
			t.Fatalf("Read(%s) failed: %v", path, err)
		}
		if got == nil {
			t.Errorf("seed dataset missing %s", path)
		}
	}
}
