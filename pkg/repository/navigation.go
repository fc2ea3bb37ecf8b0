package repository

import (
	"context"
	"slices"
	"sort"

	"github.com/marmos91/dittocmis/pkg/model"
)

// Navigator implements NavigationService over a folder and a document
// repository. Children are listed folders first, then documents, each group
// ordered by name and then id. Superseded versions are not listed; the
// latest version and the working copy of a series are.
type Navigator struct {
	Folders   Repository
	Documents Repository
}

var _ NavigationService = (*Navigator)(nil)

func (n *Navigator) GetChildren(ctx context.Context, parent model.Object) ([]model.Object, error) {
	parentID := ""
	if parent != nil {
		parentID = parent.ID()
	}

	var children []model.Object
	for _, repo := range []Repository{n.Folders, n.Documents} {
		if repo == nil {
			continue
		}
		objs, err := repo.FindByParent(ctx, parentID)
		if err != nil {
			return nil, err
		}
		objs = slices.DeleteFunc(objs, superseded)
		sortByName(objs)
		children = append(children, objs...)
	}
	return children, nil
}

func superseded(obj model.Object) bool {
	v, ok := obj.(model.Versionable)
	return ok && v.SuccessorID() != ""
}

func sortByName(objs []model.Object) {
	sort.SliceStable(objs, func(i, j int) bool {
		ni, nj := model.NameOf(objs[i]), model.NameOf(objs[j])
		if ni != nj {
			return ni < nj
		}
		return objs[i].ID() < objs[j].ID()
	})
}
