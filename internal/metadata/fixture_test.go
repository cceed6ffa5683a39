package metadata

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gowinmd/internal/backend"
	"gowinmd/internal/signature"
	"gowinmd/internal/token"
)

const (
	mdPublicStatic   = 0x0096 // Public | Static | HideBySig
	mdSpecialVirtual = 0x0846 // Public | Virtual | SpecialName
	tdPublicClass    = 0x00100181
	tdPublicStruct   = 0x00100109
)

// fixture builds an in-memory scope with the shapes Win32 and Windows Runtime
// metadata use.
type fixture struct {
	t    *testing.T
	m    *backend.Memory
	apis token.Token
	refs map[string]token.Token
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := backend.NewMemory("Windows.Win32.winmd")
	m.AddTypeDef("", "<Module>", 0, 0)
	f := &fixture{t: t, m: m, refs: make(map[string]token.Token)}
	f.apis = m.AddTypeDef("Windows.Win32.UI.WindowsAndMessaging", "Apis", tdPublicClass, f.ref("System.Object"))
	return f
}

// ref returns the TypeRef for a full type name, adding it on first use.
func (f *fixture) ref(full string) token.Token {
	if t, ok := f.refs[full]; ok {
		return t
	}
	i := strings.LastIndexByte(full, '.')
	t := f.m.AddTypeRef(full[:max(i, 0)], full[i+1:])
	f.refs[full] = t
	return t
}

func (f *fixture) scope() *Scope {
	f.t.Helper()
	s, err := NewScope(f.m, nil)
	require.NoError(f.t, err)
	return s
}

// blob concatenates signature parts: ints and element types are single bytes,
// tokens are compressed TypeDefOrRef tokens.
func (f *fixture) blob(parts ...any) []byte {
	f.t.Helper()
	var b []byte
	for _, p := range parts {
		switch v := p.(type) {
		case int:
			b = append(b, byte(v))
		case signature.ElementType:
			b = append(b, byte(v))
		case token.Token:
			enc, err := signature.EncodeCompressedToken(v)
			require.NoError(f.t, err)
			b = append(b, enc...)
		case []byte:
			b = append(b, v...)
		default:
			f.t.Fatalf("unsupported blob part %T", p)
		}
	}
	return b
}

// enumAttribute attaches an attribute whose constructor takes one enum value.
func (f *fixture) enumAttribute(parent token.Token, attr, enum string, v int32) {
	ctor := f.blob(0x20, 1, signature.ElementTypeVoid, signature.ElementTypeValueType, f.ref(enum))
	value := binary.LittleEndian.AppendUint32([]byte{0x01, 0x00}, uint32(v))
	f.m.AddAttribute(parent, attr, ctor, append(value, 0x00, 0x00))
}

// stringAttribute attaches an attribute whose constructor takes one string.
func (f *fixture) stringAttribute(parent token.Token, attr, s string) {
	ctor := f.blob(0x20, 1, signature.ElementTypeVoid, signature.ElementTypeString)
	value := append([]byte{0x01, 0x00, byte(len(s))}, s...)
	f.m.AddAttribute(parent, attr, ctor, append(value, 0x00, 0x00))
}

func (f *fixture) architecture(parent token.Token, arch Architecture) {
	f.enumAttribute(parent, supportedArchitectureAttributes[0], "Windows.Win32.Foundation.Metadata.Architecture", int32(arch))
}
