package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/slitforge/internal/catalog"
	"github.com/papapumpkin/slitforge/internal/mask"
	"github.com/papapumpkin/slitforge/internal/result"
	"github.com/papapumpkin/slitforge/internal/setup"
)

// backends returns a fresh instance of every embedded Store.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	lite, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { lite.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": lite,
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, s)
		})
	}
}

func sampleCatalog() catalog.Catalog {
	return catalog.Catalog{Name: "targets", Objects: []catalog.Object{
		{Name: "X1", Kind: catalog.KindTarget, RA: 10, Dec: -5, Priority: 3, Aux: catalog.Aux{"width": "1.5"}},
		{Name: "A1", Kind: catalog.KindAlign, RA: 150.07, Dec: -29.01, Priority: 0},
		{Name: "G1", Kind: catalog.KindGuide, RA: 11, Dec: -6, Priority: 1},
	}}
}

func sampleMask(name string, at time.Time) mask.Mask {
	m := mask.New(setup.Setup{Name: name, Project: "ngc300", Catalog: "targets", HourAngle: 99},
		[]result.Feature{
			result.Slit{Geometry: result.Geometry{ID: "S1", RA: 10, Dec: -5, X: 100, Y: 200, Width: 1, ALen: 2, BLen: 2, Angle: 90}},
			result.Hole{Geometry: result.Geometry{ID: "H1", X: -3}, Shape: 1},
		},
		result.Inclusion{Included: []string{"X1", "A1"}, Excluded: []string{"X2"}}, at)
	m.Artifacts = []string{"artifacts/ngc300/" + name + "/" + name + ".SMF"}
	return m
}

func seedProject(t *testing.T, s Store) {
	t.Helper()
	if err := s.CreateProject(context.Background(), Project{Name: "ngc300", Description: "field survey"}); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
}

func TestProjects(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedProject(t, s)
		if err := s.CreateProject(ctx, Project{Name: "alpha"}); err != nil {
			t.Fatalf("CreateProject: %v", err)
		}
		if err := s.CreateProject(ctx, Project{Name: "ngc300"}); !errors.Is(err, ErrDuplicate) {
			t.Errorf("duplicate project = %v, want ErrDuplicate", err)
		}

		p, err := s.GetProject(ctx, "ngc300")
		if err != nil || p.Description != "field survey" || p.CreatedAt.IsZero() {
			t.Errorf("GetProject = %+v, %v", p, err)
		}
		list, err := s.ListProjects(ctx)
		if err != nil || len(list) != 2 || list[0].Name != "alpha" {
			t.Errorf("ListProjects = %+v, %v", list, err)
		}

		if err := s.DeleteProject(ctx, "alpha"); err != nil {
			t.Fatalf("DeleteProject: %v", err)
		}
		if _, err := s.GetProject(ctx, "alpha"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetProject after delete = %v", err)
		}
		if err := s.DeleteProject(ctx, "alpha"); !errors.Is(err, ErrNotFound) {
			t.Errorf("second DeleteProject = %v", err)
		}
	})
}

func TestCatalogs(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.CreateCatalog(ctx, "nope", sampleCatalog()); !errors.Is(err, ErrNotFound) {
			t.Errorf("catalog in missing project = %v", err)
		}
		seedProject(t, s)
		if err := s.CreateCatalog(ctx, "ngc300", sampleCatalog()); err != nil {
			t.Fatalf("CreateCatalog: %v", err)
		}
		if err := s.CreateCatalog(ctx, "ngc300", sampleCatalog()); !errors.Is(err, ErrDuplicate) {
			t.Errorf("duplicate catalog = %v", err)
		}

		got, err := s.GetCatalog(ctx, "ngc300", "targets")
		if err != nil {
			t.Fatalf("GetCatalog: %v", err)
		}
		if diff := cmp.Diff(sampleCatalog(), got); diff != "" {
			t.Errorf("catalog mismatch (-want +got):\n%s", diff)
		}

		edited := got.Objects[0]
		edited.Priority = 9
		edited.Aux = catalog.Aux{"pa": "30"}
		if err := s.UpdateObject(ctx, "ngc300", "targets", edited); err != nil {
			t.Fatalf("UpdateObject: %v", err)
		}
		if err := s.UpdateObject(ctx, "ngc300", "targets", catalog.Object{Name: "ghost"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateObject(ghost) = %v", err)
		}
		if err := s.DeleteObject(ctx, "ngc300", "targets", "G1"); err != nil {
			t.Fatalf("DeleteObject: %v", err)
		}
		got, _ = s.GetCatalog(ctx, "ngc300", "targets")
		if len(got.Objects) != 2 || got.Objects[0].Priority != 9 || got.Objects[0].Aux["pa"] != "30" {
			t.Errorf("catalog after edit = %+v", got)
		}

		names, err := s.ListCatalogs(ctx, "ngc300")
		if err != nil || !cmp.Equal(names, []string{"targets"}) {
			t.Errorf("ListCatalogs = %v, %v", names, err)
		}
		if err := s.DeleteCatalog(ctx, "ngc300", "targets"); err != nil {
			t.Fatalf("DeleteCatalog: %v", err)
		}
		if _, err := s.GetCatalog(ctx, "ngc300", "targets"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetCatalog after delete = %v", err)
		}
		// Recreating proves the objects went with the catalog.
		if err := s.CreateCatalog(ctx, "ngc300", sampleCatalog()); err != nil {
			t.Errorf("recreate catalog: %v", err)
		}
	})
}

func TestMasks(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedProject(t, s)
		base := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

		first := sampleMask("field7", base)
		if err := s.CreateMask(ctx, first); err != nil {
			t.Fatalf("CreateMask: %v", err)
		}
		if err := s.CreateMask(ctx, sampleMask("field7", base)); !errors.Is(err, ErrDuplicate) {
			t.Errorf("duplicate mask = %v, want ErrDuplicate", err)
		}
		if err := s.CreateMask(ctx, sampleMask("field8", base.Add(time.Second))); err != nil {
			t.Fatalf("CreateMask second: %v", err)
		}

		got, err := s.GetMask(ctx, "ngc300", "field7")
		if err != nil {
			t.Fatalf("GetMask: %v", err)
		}
		if diff := cmp.Diff(first, got); diff != "" {
			t.Errorf("mask mismatch (-want +got):\n%s", diff)
		}

		if _, err := s.UpdateMaskStatus(ctx, "ngc300", "field7", mask.StatusDraft, mask.StatusFinalized); err != nil {
			t.Fatalf("UpdateMaskStatus: %v", err)
		}
		if _, err := s.UpdateMaskStatus(ctx, "ngc300", "field7", mask.StatusDraft, mask.StatusFinalized); !errors.Is(err, ErrConflict) {
			t.Errorf("stale UpdateMaskStatus = %v, want ErrConflict", err)
		}
		if _, err := s.UpdateMaskStatus(ctx, "ngc300", "ghost", mask.StatusDraft, mask.StatusFinalized); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateMaskStatus(ghost) = %v", err)
		}

		all, err := s.ListMasks(ctx, "ngc300", "")
		if err != nil || len(all) != 2 || all[0].Name != "field7" {
			t.Fatalf("ListMasks = %v, %v", all, err)
		}
		drafts, err := s.ListMasks(ctx, "ngc300", mask.StatusDraft)
		if err != nil || len(drafts) != 1 || drafts[0].Name != "field8" {
			t.Errorf("ListMasks(draft) = %v, %v", drafts, err)
		}

		if err := s.DeleteMask(ctx, "ngc300", "field8"); err != nil {
			t.Fatalf("DeleteMask: %v", err)
		}
		if err := s.DeleteMask(ctx, "ngc300", "field8"); !errors.Is(err, ErrNotFound) {
			t.Errorf("second DeleteMask = %v", err)
		}

		if err := s.DeleteProject(ctx, "ngc300"); err != nil {
			t.Fatalf("DeleteProject: %v", err)
		}
		seedProject(t, s)
		if err := s.CreateMask(ctx, sampleMask("field7", base)); err != nil {
			t.Errorf("mask survived project deletion: %v", err)
		}
	})
}

func TestMasks_ConcurrentCreateSameName(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, s Store) {
		seedProject(t, s)
		const workers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.CreateMask(context.Background(), sampleMask("race", time.Now()))
				if err == nil {
					mu.Lock()
					created++
					mu.Unlock()
				} else if !errors.Is(err, ErrDuplicate) {
					t.Errorf("CreateMask: %v", err)
				}
			}()
		}
		wg.Wait()
		if created != 1 {
			t.Errorf("%d concurrent creates succeeded, want 1", created)
		}
	})
}

func TestOpen(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), DriverMemory, "")
	if err != nil {
		t.Fatalf("Open(memory): %v", err)
	}
	defer s.Close()
	if _, ok := s.(*Memory); !ok {
		t.Errorf("Open(memory) = %T", s)
	}

	lite, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatalf("Open(sqlite): %v", err)
	}
	defer lite.Close()

	if _, err := Open(context.Background(), "oracle", ""); err == nil {
		t.Error("Open accepted an unknown driver")
	}
}

func TestSQLite_IdempotentSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "twice.db")
	for i := 0; i < 2; i++ {
		s, err := NewSQLite(context.Background(), path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		var mode string
		if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil || mode != "wal" {
			t.Errorf("journal_mode = %q, %v", mode, err)
		}
		s.Close()
	}
}
