package maskgen

import (
	"github.com/papapumpkin/slitforge/internal/catalog"
	"github.com/papapumpkin/slitforge/internal/result"
	"github.com/papapumpkin/slitforge/internal/workspace"
)

func decodeFeatures(ws *workspace.Workspace, name string) ([]result.Feature, error) {
	f, err := ws.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return result.DecodeFeatures(f)
}

func decodeInclusion(ws *workspace.Workspace, name string, cat catalog.Catalog) (result.Inclusion, error) {
	f, err := ws.Open(name)
	if err != nil {
		return result.Inclusion{}, err
	}
	defer f.Close()
	return result.DecodeInclusion(f, func(obj string) bool {
		_, ok := cat.Lookup(obj)
		return ok
	})
}
