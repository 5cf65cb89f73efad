package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/papapumpkin/slitforge/internal/catalog"
	"github.com/papapumpkin/slitforge/internal/mask"
	"github.com/papapumpkin/slitforge/internal/result"
)

// Memory is an in-process Store. Values are copied on the way in and out.
type Memory struct {
	mu       sync.Mutex
	projects map[string]Project
	catalogs map[string]map[string]catalog.Catalog
	masks    map[string]map[string]mask.Mask
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		projects: make(map[string]Project),
		catalogs: make(map[string]map[string]catalog.Catalog),
		masks:    make(map[string]map[string]mask.Mask),
	}
}

// CreateProject adds p.
func (m *Memory) CreateProject(_ context.Context, p Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.Name]; ok {
		return duplicate("project", p.Name)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.projects[p.Name] = p
	m.catalogs[p.Name] = make(map[string]catalog.Catalog)
	m.masks[p.Name] = make(map[string]mask.Mask)
	return nil
}

// GetProject returns the named project.
func (m *Memory) GetProject(_ context.Context, name string) (Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[name]
	if !ok {
		return Project{}, notFound("project", name)
	}
	return p, nil
}

// ListProjects returns all projects ordered by name.
func (m *Memory) ListProjects(_ context.Context) ([]Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteProject removes a project with its catalogs and masks.
func (m *Memory) DeleteProject(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[name]; !ok {
		return notFound("project", name)
	}
	delete(m.projects, name)
	delete(m.catalogs, name)
	delete(m.masks, name)
	return nil
}

// CreateCatalog stores c under project.
func (m *Memory) CreateCatalog(_ context.Context, project string, c catalog.Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cats, ok := m.catalogs[project]
	if !ok {
		return notFound("project", project)
	}
	if _, ok := cats[c.Name]; ok {
		return duplicate("catalog", c.Name)
	}
	cats[c.Name] = cloneCatalog(c)
	return nil
}

// GetCatalog returns a copy of the named catalog.
func (m *Memory) GetCatalog(_ context.Context, project, name string) (catalog.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.catalogs[project][name]
	if !ok {
		return catalog.Catalog{}, notFound("catalog", project+"/"+name)
	}
	return cloneCatalog(c), nil
}

// ListCatalogs returns catalog names in a project, sorted.
func (m *Memory) ListCatalogs(_ context.Context, project string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cats, ok := m.catalogs[project]
	if !ok {
		return nil, notFound("project", project)
	}
	out := make([]string, 0, len(cats))
	for n := range cats {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// DeleteCatalog removes a catalog and its objects.
func (m *Memory) DeleteCatalog(_ context.Context, project, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.catalogs[project][name]; !ok {
		return notFound("catalog", project+"/"+name)
	}
	delete(m.catalogs[project], name)
	return nil
}

// UpdateObject replaces the stored object with the same name.
func (m *Memory) UpdateObject(_ context.Context, project, catalogName string, o catalog.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.catalogs[project][catalogName]
	if !ok {
		return notFound("catalog", project+"/"+catalogName)
	}
	for i := range c.Objects {
		if c.Objects[i].Name == o.Name {
			o.Aux = o.Aux.Clone()
			c.Objects[i] = o
			return nil
		}
	}
	return notFound("object", o.Name)
}

// DeleteObject removes one object from a catalog.
func (m *Memory) DeleteObject(_ context.Context, project, catalogName, objectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.catalogs[project][catalogName]
	if !ok {
		return notFound("catalog", project+"/"+catalogName)
	}
	if err := c.Remove(objectName); err != nil {
		return notFound("object", objectName)
	}
	m.catalogs[project][catalogName] = c
	return nil
}

// CreateMask stores mk, rejecting a second mask with the same name.
func (m *Memory) CreateMask(_ context.Context, mk mask.Mask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	masks, ok := m.masks[mk.Project]
	if !ok {
		return notFound("project", mk.Project)
	}
	if _, ok := masks[mk.Name]; ok {
		return duplicate("mask", mk.Name)
	}
	masks[mk.Name] = cloneMask(mk)
	return nil
}

// GetMask returns a copy of the named mask.
func (m *Memory) GetMask(_ context.Context, project, name string) (mask.Mask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.masks[project][name]
	if !ok {
		return mask.Mask{}, notFound("mask", project+"/"+name)
	}
	return cloneMask(mk), nil
}

// ListMasks returns a project's masks, oldest first.
func (m *Memory) ListMasks(_ context.Context, project string, status mask.Status) ([]mask.Mask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	masks, ok := m.masks[project]
	if !ok {
		return nil, notFound("project", project)
	}
	out := make([]mask.Mask, 0, len(masks))
	for _, mk := range masks {
		if status == "" || mk.Status == status {
			out = append(out, cloneMask(mk))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// UpdateMaskStatus performs a compare-and-set on the mask status.
func (m *Memory) UpdateMaskStatus(_ context.Context, project, name string, from, to mask.Status) (mask.Mask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.masks[project][name]
	if !ok {
		return mask.Mask{}, notFound("mask", project+"/"+name)
	}
	if mk.Status != from {
		return mask.Mask{}, ErrConflict
	}
	mk.Status = to
	mk.UpdatedAt = time.Now().UTC()
	m.masks[project][name] = mk
	return cloneMask(mk), nil
}

// DeleteMask removes a mask record.
func (m *Memory) DeleteMask(_ context.Context, project, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.masks[project][name]; !ok {
		return notFound("mask", project+"/"+name)
	}
	delete(m.masks[project], name)
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func cloneCatalog(c catalog.Catalog) catalog.Catalog {
	out := catalog.Catalog{Name: c.Name, Objects: make([]catalog.Object, len(c.Objects))}
	for i, o := range c.Objects {
		o.Aux = o.Aux.Clone()
		out.Objects[i] = o
	}
	return out
}

func cloneMask(m mask.Mask) mask.Mask {
	m.Setup = m.Setup.WithName(m.Setup.Name)
	m.Features = append([]result.Feature(nil), m.Features...)
	m.Included = append([]string(nil), m.Included...)
	m.Excluded = append([]string(nil), m.Excluded...)
	m.Artifacts = append([]string(nil), m.Artifacts...)
	return m
}
