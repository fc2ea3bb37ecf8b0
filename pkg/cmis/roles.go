package cmis

import (
	"fmt"
	"net/url"
	"reflect"
	"time"

	"github.com/marmos91/dittocmis/pkg/model"
)

// Role is a semantic role a domain type can play.
type Role int

const (
	RoleIdentity Role = iota
	RoleName
	RoleDescription
	RoleContentID
	RoleContentLength
	RoleMimeType
	RoleCreatedBy
	RoleCreatedDate
	RoleLastModifiedBy
	RoleLastModifiedDate
	RoleVersionNumber
	RoleVersionLabel
	RoleLockOwner
	RoleAncestorID
	RoleAncestorRootID
	RoleSuccessorID
	RoleParent
	RoleChildren
	RoleChangeToken
)

var roleNames = [...]string{
	RoleIdentity:         "identity",
	RoleName:             "name",
	RoleDescription:      "description",
	RoleContentID:        "content-id",
	RoleContentLength:    "content-length",
	RoleMimeType:         "mime-type",
	RoleCreatedBy:        "created-by",
	RoleCreatedDate:      "created-date",
	RoleLastModifiedBy:   "last-modified-by",
	RoleLastModifiedDate: "last-modified-date",
	RoleVersionNumber:    "version-number",
	RoleVersionLabel:     "version-label",
	RoleLockOwner:        "lock-owner",
	RoleAncestorID:       "ancestor-id",
	RoleAncestorRootID:   "ancestor-root-id",
	RoleSuccessorID:      "successor-id",
	RoleParent:           "parent",
	RoleChildren:         "children",
	RoleChangeToken:      "change-token",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", int(r))
}

var (
	stringType = reflect.TypeOf("")
	int64Type  = reflect.TypeOf(int64(0))
	timeType   = reflect.TypeOf(time.Time{})
	idsType    = reflect.TypeOf([]string(nil))
)

// roleSpec describes how a role is detected and accessed on an object.
type roleSpec struct {
	valueType reflect.Type
	has       func(model.Object) bool
	writable  func(model.Object) bool
	get       func(model.Object) any
	set       func(model.Object, any) error
}

func implements[T any](obj model.Object) bool {
	_, ok := obj.(T)
	return ok
}

func never(model.Object) bool { return false }

func setString(obj model.Object, v any, apply func(string)) error {
	s, ok := v.(string)
	if !ok && v != nil {
		return newError(ErrInvalidArgument, obj.ID(), "expected a string value, got %T", v)
	}
	apply(s)
	return nil
}

func readOnly(role Role) func(model.Object, any) error {
	return func(obj model.Object, _ any) error {
		return newError(ErrInvalidArgument, obj.ID(), "role %s is read-only", role)
	}
}

var roleSpecs = map[Role]roleSpec{
	RoleIdentity: {
		valueType: stringType,
		has:       func(model.Object) bool { return true },
		writable:  func(model.Object) bool { return true },
		get:       func(o model.Object) any { return o.ID() },
		set: func(o model.Object, v any) error {
			return setString(o, v, o.SetID)
		},
	},
	RoleName: {
		valueType: stringType,
		has:       implements[model.Named],
		writable:  implements[model.NameSetter],
		get:       func(o model.Object) any { return o.(model.Named).Name() },
		set: func(o model.Object, v any) error {
			setter, ok := o.(model.NameSetter)
			if !ok {
				return readOnly(RoleName)(o, v)
			}
			return setString(o, v, setter.SetName)
		},
	},
	RoleDescription: {
		valueType: stringType,
		has:       implements[model.Described],
		writable:  implements[model.DescriptionSetter],
		get:       func(o model.Object) any { return o.(model.Described).Description() },
		set: func(o model.Object, v any) error {
			setter, ok := o.(model.DescriptionSetter)
			if !ok {
				return readOnly(RoleDescription)(o, v)
			}
			return setString(o, v, setter.SetDescription)
		},
	},
	RoleContentID: {
		valueType: stringType,
		has:       implements[model.ContentBearing],
		writable:  implements[model.ContentBearing],
		get:       func(o model.Object) any { return o.(model.ContentBearing).ContentID() },
		set: func(o model.Object, v any) error {
			return setString(o, v, o.(model.ContentBearing).SetContentID)
		},
	},
	RoleContentLength: {
		valueType: int64Type,
		has:       implements[model.ContentBearing],
		writable:  implements[model.ContentBearing],
		get:       func(o model.Object) any { return o.(model.ContentBearing).ContentLength() },
		set: func(o model.Object, v any) error {
			n, ok := v.(int64)
			if !ok {
				return newError(ErrInvalidArgument, o.ID(), "expected an int64 value, got %T", v)
			}
			o.(model.ContentBearing).SetContentLength(n)
			return nil
		},
	},
	RoleMimeType: {
		valueType: stringType,
		has:       implements[model.MimeTyped],
		writable:  implements[model.MimeTypeSetter],
		get:       func(o model.Object) any { return o.(model.MimeTyped).MimeType() },
		set: func(o model.Object, v any) error {
			setter, ok := o.(model.MimeTypeSetter)
			if !ok {
				return readOnly(RoleMimeType)(o, v)
			}
			return setString(o, v, setter.SetMimeType)
		},
	},
	RoleCreatedBy: {
		valueType: stringType,
		has:       implements[model.Audited],
		writable:  never,
		get:       func(o model.Object) any { return o.(model.Audited).CreatedBy() },
		set:       readOnly(RoleCreatedBy),
	},
	RoleCreatedDate: {
		valueType: timeType,
		has:       implements[model.Audited],
		writable:  never,
		get:       func(o model.Object) any { return o.(model.Audited).CreatedDate() },
		set:       readOnly(RoleCreatedDate),
	},
	RoleLastModifiedBy: {
		valueType: stringType,
		has:       implements[model.Audited],
		writable:  never,
		get:       func(o model.Object) any { return o.(model.Audited).LastModifiedBy() },
		set:       readOnly(RoleLastModifiedBy),
	},
	RoleLastModifiedDate: {
		valueType: timeType,
		has:       implements[model.Audited],
		writable:  never,
		get:       func(o model.Object) any { return o.(model.Audited).LastModifiedDate() },
		set:       readOnly(RoleLastModifiedDate),
	},
	RoleVersionNumber: versionableRole(
		func(v model.Versionable) string { return v.VersionNumber() },
		func(v model.Versionable, s string) { v.SetVersionNumber(s) },
	),
	RoleVersionLabel: versionableRole(
		func(v model.Versionable) string { return v.VersionLabel() },
		func(v model.Versionable, s string) { v.SetVersionLabel(s) },
	),
	RoleAncestorID: versionableRole(
		func(v model.Versionable) string { return v.AncestorID() },
		func(v model.Versionable, s string) { v.SetAncestorID(s) },
	),
	RoleAncestorRootID: versionableRole(
		func(v model.Versionable) string { return v.AncestorRootID() },
		func(v model.Versionable, s string) { v.SetAncestorRootID(s) },
	),
	RoleSuccessorID: versionableRole(
		func(v model.Versionable) string { return v.SuccessorID() },
		func(v model.Versionable, s string) { v.SetSuccessorID(s) },
	),
	RoleLockOwner: {
		valueType: stringType,
		has:       implements[model.LockOwnerBearing],
		writable:  implements[model.LockOwnerBearing],
		get:       func(o model.Object) any { return o.(model.LockOwnerBearing).LockOwner() },
		set: func(o model.Object, v any) error {
			return setString(o, v, o.(model.LockOwnerBearing).SetLockOwner)
		},
	},
	RoleParent: {
		valueType: stringType,
		has:       implements[model.ParentReferencing],
		writable:  implements[model.ParentReferencing],
		get:       func(o model.Object) any { return o.(model.ParentReferencing).ParentID() },
		set: func(o model.Object, v any) error {
			return setString(o, v, o.(model.ParentReferencing).SetParentID)
		},
	},
	RoleChildren: {
		valueType: idsType,
		has:       implements[model.ChildReferencing],
		writable:  implements[model.ChildReferencing],
		get:       func(o model.Object) any { return o.(model.ChildReferencing).ChildIDs() },
		set: func(o model.Object, v any) error {
			ids, ok := v.([]string)
			if !ok && v != nil {
				return newError(ErrInvalidArgument, o.ID(), "expected a []string value, got %T", v)
			}
			o.(model.ChildReferencing).SetChildIDs(ids)
			return nil
		},
	},
	RoleChangeToken: {
		valueType: stringType,
		has:       implements[model.ChangeTokenBearing],
		writable:  never,
		get:       func(o model.Object) any { return o.(model.ChangeTokenBearing).ChangeToken() },
		set:       readOnly(RoleChangeToken),
	},
}

func versionableRole(get func(model.Versionable) string, set func(model.Versionable, string)) roleSpec {
	return roleSpec{
		valueType: stringType,
		has:       implements[model.Versionable],
		writable:  implements[model.Versionable],
		get:       func(o model.Object) any { return get(o.(model.Versionable)) },
		set: func(o model.Object, v any) error {
			return setString(o, v, func(s string) { set(o.(model.Versionable), s) })
		},
	}
}

// RoleInfo describes one role of a registered type.
type RoleInfo struct {
	Role      Role
	Writable  bool
	ValueType reflect.Type
}

// RoleRegistry records which roles a domain type plays. It is built once from
// a prototype instance and never modified, so it can be shared freely.
type RoleRegistry struct {
	kind  model.Kind
	typ   reflect.Type
	roles map[Role]RoleInfo
}

// NewRoleRegistry inspects prototype's trait implementations. It fails with
// ErrIllegalState when the type is neither a document nor a folder.
func NewRoleRegistry(prototype model.Object) (*RoleRegistry, error) {
	if prototype == nil {
		return nil, newError(ErrIllegalState, "", "no entity prototype")
	}

	kind := prototype.Kind()
	if kind != model.KindDocument && kind != model.KindFolder {
		return nil, newError(ErrIllegalState, "", "entity type %T is neither a document nor a folder", prototype)
	}

	reg := &RoleRegistry{
		kind:  kind,
		typ:   reflect.TypeOf(prototype),
		roles: make(map[Role]RoleInfo),
	}
	for role, spec := range roleSpecs {
		if !spec.has(prototype) {
			continue
		}
		reg.roles[role] = RoleInfo{
			Role:      role,
			Writable:  spec.writable(prototype),
			ValueType: spec.valueType,
		}
	}
	return reg, nil
}

// Kind returns the base kind of the registered type.
func (r *RoleRegistry) Kind() model.Kind { return r.kind }

// Type returns the Go type of the registered entity.
func (r *RoleRegistry) Type() reflect.Type { return r.typ }

// Has reports whether the type plays role.
func (r *RoleRegistry) Has(role Role) bool {
	_, ok := r.roles[role]
	return ok
}

// Info returns the description of role.
func (r *RoleRegistry) Info(role Role) (RoleInfo, bool) {
	info, ok := r.roles[role]
	return info, ok
}

// Writable reports whether role can be set on the type.
func (r *RoleRegistry) Writable(role Role) bool {
	return r.roles[role].Writable
}

// Accepts reports whether obj is an instance of the registered type.
func (r *RoleRegistry) Accepts(obj model.Object) bool {
	return obj != nil && reflect.TypeOf(obj) == r.typ
}

// GetRole returns the value obj holds for role, or nil when obj does not
// play it.
func GetRole(obj model.Object, role Role) any {
	spec, ok := roleSpecs[role]
	if !ok || obj == nil || !spec.has(obj) {
		return nil
	}
	return spec.get(obj)
}

// GetRoleString returns the string value of role, or "".
func GetRoleString(obj model.Object, role Role) string {
	s, _ := GetRole(obj, role).(string)
	return s
}

// SetRole assigns value to role on obj.
func SetRole(obj model.Object, role Role, value any) error {
	spec, ok := roleSpecs[role]
	if !ok || obj == nil || !spec.has(obj) {
		id := ""
		if obj != nil {
			id = obj.ID()
		}
		return newError(ErrInvalidArgument, id, "object does not play role %s", role)
	}
	return spec.set(obj, value)
}

// datatypeOf infers the property datatype of a role from its Go value type.
func datatypeOf(t reflect.Type) PropertyType {
	if t == nil {
		return PropertyTypeID
	}
	if t == timeType {
		return PropertyTypeDateTime
	}
	if t == reflect.TypeOf((*url.URL)(nil)) {
		return PropertyTypeURI
	}
	switch t.Kind() {
	case reflect.String:
		return PropertyTypeString
	case reflect.Bool:
		return PropertyTypeBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return PropertyTypeInteger
	case reflect.Float32, reflect.Float64:
		return PropertyTypeDecimal
	default:
		return PropertyTypeID
	}
}

// cardinalityOf returns CardinalityMulti for slice-valued roles.
func cardinalityOf(t reflect.Type) Cardinality {
	if t != nil && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) {
		return CardinalityMulti
	}
	return CardinalitySingle
}
