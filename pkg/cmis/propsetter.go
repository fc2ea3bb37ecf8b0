package cmis

import (
	"sort"
	"strings"

	"github.com/marmos91/dittocmis/pkg/model"
)

// writableProperties maps the properties a caller may set to their roles.
var writableProperties = map[string]Role{
	PropName:        RoleName,
	PropDescription: RoleDescription,
}

// propertySetter applies caller-supplied property values to objects of one
// type.
type propertySetter struct {
	def *TypeDefinition
	reg *RoleRegistry
}

// apply validates every value before changing obj, so a rejected update
// leaves obj untouched. create allows on-create properties.
func (s propertySetter) apply(obj model.Object, props map[string]any, create bool) error {
	updates, err := s.validate(obj.ID(), props, create)
	if err != nil {
		return err
	}
	for role, value := range updates {
		if err := SetRole(obj, role, value); err != nil {
			return err
		}
	}
	return nil
}

// validate checks props against the type and returns the role updates they
// translate to. objectID only labels errors.
func (s propertySetter) validate(objectID string, props map[string]any, create bool) (map[Role]any, error) {
	ids := make([]string, 0, len(props))
	for id := range props {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	updates := make(map[Role]any)
	for _, id := range ids {
		value := props[id]

		pd := s.def.Property(id)
		if pd == nil {
			return nil, newError(ErrInvalidArgument, objectID, "unknown property %s for type %s", id, s.def.ID)
		}

		switch pd.Updatability {
		case UpdatabilityOnCreate:
			if !create {
				return nil, newError(ErrInvalidArgument, objectID, "property %s can only be set on create", id)
			}
			if id == PropObjectTypeID {
				if typeID, _ := singleValue(value).(string); typeID != s.def.ID {
					return nil, newError(ErrInvalidArgument, objectID, "object type %v does not match %s", value, s.def.ID)
				}
			}

		case UpdatabilityReadWrite:
			role, ok := writableProperties[id]
			if !ok || !s.reg.Writable(role) {
				return nil, newError(ErrInvalidArgument, objectID, "property %s is read-only", id)
			}
			v, err := stringValue(id, singleValue(value))
			if err != nil {
				return nil, err
			}
			if role == RoleName {
				if err := ValidateName(v); err != nil {
					return nil, err
				}
			}
			updates[role] = v

		default:
			return nil, newError(ErrInvalidArgument, objectID, "property %s is read-only", id)
		}
	}

	return updates, nil
}

// ValidateName rejects names that cannot be resolved through a path.
func ValidateName(name string) error {
	if name == "" {
		return newError(ErrInvalidArgument, "", "name must not be empty")
	}
	if name == "." || name == ".." || strings.Contains(name, "/") {
		return newError(ErrInvalidArgument, "", "invalid name %q", name)
	}
	return nil
}

// singleValue unwraps a single-element list, the form multi-value capable
// clients send single values in.
func singleValue(v any) any {
	switch list := v.(type) {
	case []any:
		if len(list) == 1 {
			return list[0]
		}
	case []string:
		if len(list) == 1 {
			return list[0]
		}
	}
	return v
}

func stringValue(id string, v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		return "", newError(ErrInvalidArgument, "", "property %s expects a string, got %T", id, v)
	}
}
