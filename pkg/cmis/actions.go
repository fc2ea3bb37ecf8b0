package cmis

import (
	"sort"

	"github.com/marmos91/dittocmis/pkg/model"
)

// Action is an operation a caller may invoke on an object.
type Action string

const (
	ActionGetProperties       Action = "canGetProperties"
	ActionGetObjectParents    Action = "canGetObjectParents"
	ActionUpdateProperties    Action = "canUpdateProperties"
	ActionDeleteObject        Action = "canDeleteObject"
	ActionGetChildren         Action = "canGetChildren"
	ActionGetFolderTree       Action = "canGetFolderTree"
	ActionGetFolderParent     Action = "canGetFolderParent"
	ActionCreateDocument      Action = "canCreateDocument"
	ActionCreateFolder        Action = "canCreateFolder"
	ActionDeleteTree          Action = "canDeleteTree"
	ActionGetContentStream    Action = "canGetContentStream"
	ActionSetContentStream    Action = "canSetContentStream"
	ActionDeleteContentStream Action = "canDeleteContentStream"
	ActionGetAllVersions      Action = "canGetAllVersions"
	ActionCheckIn             Action = "canCheckIn"
	ActionCheckOut            Action = "canCheckOut"
	ActionCancelCheckOut      Action = "canCancelCheckOut"
)

// ActionSet is a set of permitted actions.
type ActionSet map[Action]struct{}

// Has reports whether a is permitted.
func (s ActionSet) Has(a Action) bool {
	_, ok := s[a]
	return ok
}

// List returns the permitted actions sorted by name.
func (s ActionSet) List() []Action {
	actions := make([]Action, 0, len(s))
	for a := range s {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

func (s ActionSet) add(a Action, allowed bool) {
	if allowed {
		s[a] = struct{}{}
	}
}

// AllowableActions computes the actions permitted on obj. Lock state is not
// considered; checkout conflicts are reported by the operations themselves.
func AllowableActions(def *TypeDefinition, obj model.Object, isRoot, readOnly bool) ActionSet {
	s := make(ActionSet)

	s.add(ActionGetProperties, true)
	s.add(ActionGetObjectParents, !isRoot)
	s.add(ActionUpdateProperties, !readOnly)
	s.add(ActionDeleteObject, !readOnly && !isRoot)

	if def.IsFolder() {
		s.add(ActionGetChildren, true)
		s.add(ActionGetFolderTree, true)
		s.add(ActionGetFolderParent, !isRoot)
		s.add(ActionCreateDocument, !readOnly)
		s.add(ActionCreateFolder, !readOnly)
		s.add(ActionDeleteTree, !readOnly)
		return s
	}

	if def.ContentAllowed() {
		s.add(ActionGetContentStream, model.ContentLengthOf(obj) > 0)
		s.add(ActionSetContentStream, !readOnly)
		s.add(ActionDeleteContentStream, !readOnly)
		s.add(ActionGetAllVersions, true)
	}

	if def.Versionable {
		s.add(ActionCheckIn, true)
		s.add(ActionCheckOut, true)
		s.add(ActionCancelCheckOut, true)
	}
	return s
}
