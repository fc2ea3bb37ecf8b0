package cmis

import (
	"reflect"
	"testing"

	"github.com/marmos91/dittocmis/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// note is an object that is neither a document nor a folder.
type note struct{ id string }

func (n *note) ID() string { return n.id }
func (n *note) SetID(id string) { n.id = id }
func (n *note) Kind() model.Kind { return model.KindUnknown }
func (n *note) Name() string { return "note" }
func (n *note) ChangeToken() string { return "v1" }

// tokenFolder is a folder carrying a change token.
type tokenFolder struct {
	*model.Folder
}

func (f tokenFolder) ChangeToken() string { return "etag" }

func TestRoleRegistryDocument(t *testing.T) {
	reg, err := NewRoleRegistry(model.NewDocument(""))
	require.NoError(t, err)

	assert.Equal(t, model.KindDocument, reg.Kind())
	assert.Equal(t, reflect.TypeOf(&model.Document{}), reg.Type())

	for _, role := range []Role{
		RoleIdentity, RoleName, RoleDescription, RoleContentID, RoleContentLength,
		RoleMimeType, RoleCreatedBy, RoleVersionNumber, RoleLockOwner, RoleParent,
	} {
		assert.True(t, reg.Has(role), "role %s", role)
	}
	assert.False(t, reg.Has(RoleChildren))
	assert.False(t, reg.Has(RoleChangeToken))

	assert.True(t, reg.Writable(RoleName))
	assert.False(t, reg.Writable(RoleCreatedBy))

	info, ok := reg.Info(RoleContentLength)
	require.True(t, ok)
	assert.Equal(t, reflect.TypeOf(int64(0)), info.ValueType)

	assert.True(t, reg.Accepts(model.NewDocument("x")))
	assert.False(t, reg.Accepts(model.NewFolder("x")))
	assert.False(t, reg.Accepts(nil))
}

func TestRoleRegistryFolder(t *testing.T) {
	reg, err := NewRoleRegistry(model.NewFolder(""))
	require.NoError(t, err)

	assert.Equal(t, model.KindFolder, reg.Kind())
	assert.True(t, reg.Has(RoleChildren))
	assert.True(t, reg.Has(RoleParent))
	assert.False(t, reg.Has(RoleContentID))
	assert.False(t, reg.Has(RoleVersionNumber))

	reg, err = NewRoleRegistry(tokenFolder{model.NewFolder("")})
	require.NoError(t, err)
	assert.True(t, reg.Has(RoleChangeToken))
	assert.False(t, reg.Writable(RoleChangeToken))
}

func TestRoleRegistryRejectsUnknownKinds(t *testing.T) {
	_, err := NewRoleRegistry(&note{})
	requireCode(t, ErrIllegalState, err)

	_, err = NewRoleRegistry(nil)
	requireCode(t, ErrIllegalState, err)
}

func TestGetAndSetRole(t *testing.T) {
	doc := model.NewDocument("a.txt")

	require.NoError(t, SetRole(doc, RoleName, "b.txt"))
	assert.Equal(t, "b.txt", GetRoleString(doc, RoleName))

	require.NoError(t, SetRole(doc, RoleContentLength, int64(42)))
	assert.Equal(t, int64(42), GetRole(doc, RoleContentLength))

	require.NoError(t, SetRole(doc, RoleDescription, nil))
	assert.Empty(t, GetRoleString(doc, RoleDescription))

	err := SetRole(doc, RoleName, 7)
	requireCode(t, ErrInvalidArgument, err)

	err = SetRole(doc, RoleContentLength, 42)
	requireCode(t, ErrInvalidArgument, err)

	err = SetRole(doc, RoleCreatedBy, "mallory")
	requireCode(t, ErrInvalidArgument, err)

	err = SetRole(doc, RoleChildren, []string{"x"})
	requireCode(t, ErrInvalidArgument, err)

	assert.Nil(t, GetRole(doc, RoleChildren))
	assert.Nil(t, GetRole(nil, RoleName))

	folder := model.NewFolder("f")
	require.NoError(t, SetRole(folder, RoleChildren, []string{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, folder.ChildIDs())
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "content-length", RoleContentLength.String())
	assert.Equal(t, "role(99)", Role(99).String())
}
