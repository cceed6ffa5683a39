package metadata

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gowinmd/internal/signature"
)

func TestTypeDefFlagsAndKind(t *testing.T) {
	f := newFixture(t)
	rect := f.m.AddTypeDef("Windows.Win32.Foundation", "RECT", tdPublicStruct, f.ref("System.ValueType"))
	enum := f.m.AddTypeDef("Windows.Win32.UI.WindowsAndMessaging", "SHOW_WINDOW_CMD", 0x101, f.ref("System.Enum"))
	proc := f.m.AddTypeDef("Windows.Win32.UI.WindowsAndMessaging", "WNDPROC", 0x101, f.ref("System.MulticastDelegate"))
	iface := f.m.AddTypeDef("Windows.Win32.System.Com", "IUnknown", 0xa1, 0)
	bad := f.m.AddTypeDef("Sample", "Bad", 0x18, 0)
	s := f.scope()

	td := s.FindTypeDefByToken(rect)
	assert.Equal(t, "Windows.Win32.Foundation.RECT", td.String())
	assert.Equal(t, Public, td.Visibility())
	assert.True(t, td.IsStruct())
	assert.True(t, td.IsSealed())
	assert.Equal(t, "System.ValueType", td.BaseTypeName())
	layout, err := td.Layout()
	require.NoError(t, err)
	assert.Equal(t, SequentialLayout, layout)
	assert.Equal(t, AnsiStringFormat, td.StringFormat())

	assert.True(t, s.FindTypeDefByToken(enum).IsEnum())
	assert.True(t, s.FindTypeDefByToken(proc).IsDelegate())
	assert.Equal(t, InterfaceKind, s.FindTypeDefByToken(iface).Kind())
	assert.True(t, s.FindTypeDefByToken(iface).IsAbstract())
	assert.True(t, s.FindTypeDefByToken(f.apis).IsClass())

	_, err = s.FindTypeDefByToken(bad).Layout()
	assert.ErrorIs(t, err, ErrUnknownLayout)
}

func TestTypeDefMembers(t *testing.T) {
	f := newFixture(t)
	point := f.m.AddTypeDef("Windows.Win32.Foundation", "POINT", tdPublicStruct, f.ref("System.ValueType"))
	f.m.AddField(point, "x", 0x6, f.blob(0x06, signature.ElementTypeI4))
	f.m.AddField(point, "y", 0x6, f.blob(0x06, signature.ElementTypeI4))
	f.m.AddField(f.apis, "MAX_PATH", 0x8056, f.blob(0x06, signature.ElementTypeU4))
	s := f.scope()

	fields, err := s.FindTypeDefByToken(point).Fields()
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "y", fields[1].Name())
	typ, err := fields[1].TypeIdentifier()
	require.NoError(t, err)
	assert.Equal(t, signature.ElementTypeI4, typ.CorType)
	assert.Equal(t, point, fields[1].Parent().Token())

	constants, err := s.FindTypeDefByToken(f.apis).Fields()
	require.NoError(t, err)
	require.Len(t, constants, 1)
	assert.True(t, constants[0].IsStatic())
	assert.True(t, constants[0].IsLiteral())
	assert.True(t, constants[0].HasDefault())
}

func TestTypeDefPropertiesEventsInterfaces(t *testing.T) {
	f := newFixture(t)
	object := f.ref("System.Object")
	iface := f.ref("Windows.Foundation.IClosable")
	handler := f.ref("Windows.Foundation.EventHandler")
	cls := f.m.AddTypeDef("Windows.Sample", "Widget", tdPublicClass, object)

	getter := f.m.AddMethod(cls, "get_Title", mdSpecialVirtual, f.blob(0x20, 0, signature.ElementTypeString))
	setter := f.m.AddMethod(cls, "put_Title", mdSpecialVirtual, f.blob(0x20, 1, signature.ElementTypeVoid, signature.ElementTypeString))
	f.m.AddProperty(cls, "Title", f.blob(0x28, 0, signature.ElementTypeString), getter, setter)
	f.m.AddEvent(cls, "Changed", handler)
	f.m.AddInterfaceImpl(cls, iface)
	s := f.scope()
	td := s.FindTypeDefByToken(cls)

	props, err := td.Properties()
	require.NoError(t, err)
	require.Len(t, props, 1)
	typ, err := props[0].TypeIdentifier()
	require.NoError(t, err)
	assert.Equal(t, "string", typ.String())
	g, err := props[0].Getter()
	require.NoError(t, err)
	assert.Equal(t, "get_Title", g.Name())
	st, err := props[0].Setter()
	require.NoError(t, err)
	assert.Equal(t, "put_Title", st.Name())
	assert.Same(t, td, props[0].Parent())

	events, err := td.Events()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Windows.Foundation.EventHandler", events[0].TypeIdentifier().String())
	remove, err := events[0].RemoveMethod()
	require.NoError(t, err)
	assert.Nil(t, remove)

	ifaces, err := td.Interfaces()
	require.NoError(t, err)
	require.Len(t, ifaces, 1)
	assert.Equal(t, "Windows.Foundation.IClosable", ifaces[0].Name)
	assert.Equal(t, iface, ifaces[0].Token)
}

func TestTypeDefNestedParent(t *testing.T) {
	f := newFixture(t)
	outer := f.m.AddTypeDef("Windows.Win32.Foundation", "DECIMAL", tdPublicStruct, f.ref("System.ValueType"))
	inner := f.m.AddTypeDef("", "_Anonymous_e__Union", 0x10b, f.ref("System.ValueType"))
	f.m.AddNestedClass(inner, outer)
	s := f.scope()

	parent, err := s.FindTypeDefByToken(inner).Parent()
	require.NoError(t, err)
	assert.Same(t, s.FindTypeDefByToken(outer), parent)

	parent, err = s.FindTypeDefByToken(outer).Parent()
	require.NoError(t, err)
	assert.Nil(t, parent)
}

func TestTypeDefSupportedArchitecturesDefaultsToAll(t *testing.T) {
	f := newFixture(t)
	s := f.scope()

	arch, err := s.FindTypeDefByToken(f.apis).SupportedArchitectures()
	require.NoError(t, err)
	assert.Equal(t, AllArchitectures, arch)
}

func TestTypeDefGUID(t *testing.T) {
	for _, attr := range guidAttributes[:2] {
		t.Run(attr, func(t *testing.T) {
			testTypeDefGUID(t, attr)
		})
	}
}

func testTypeDefGUID(t *testing.T, attr string) {
	f := newFixture(t)
	iface := f.m.AddTypeDef("Windows.Win32.System.Com", "IUnknown", 0xa1, 0)

	ctor := []byte{0x20, 11, byte(signature.ElementTypeVoid), byte(signature.ElementTypeU4), byte(signature.ElementTypeU2), byte(signature.ElementTypeU2)}
	for i := 0; i < 8; i++ {
		ctor = append(ctor, byte(signature.ElementTypeU1))
	}
	value := []byte{
		0x01, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
		0xc0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46,
		0x00, 0x00,
	}
	f.m.AddAttribute(iface, attr, ctor, value)
	s := f.scope()

	id, ok, err := s.FindTypeDefByToken(iface).GUID()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uuid.MustParse("00000000-0000-0000-c000-000000000046"), id)

	_, ok, err = s.FindTypeDefByToken(f.apis).GUID()
	require.NoError(t, err)
	assert.False(t, ok)
}
