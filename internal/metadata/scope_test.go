package metadata

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gowinmd/internal/backend"
	"gowinmd/internal/token"
)

func TestNewScopeIndexesTypeDefs(t *testing.T) {
	f := newFixture(t)
	rect := f.m.AddTypeDef("Windows.Win32.Foundation", "RECT", tdPublicStruct, f.ref("System.ValueType"))

	s := f.scope()
	assert.Equal(t, "Windows.Win32.winmd", s.Name())
	assert.Len(t, s.TypeDefs(), 3)

	byFull, err := s.FindTypeDef("Windows.Win32.Foundation.RECT", X64)
	require.NoError(t, err)
	require.NotNil(t, byFull)
	assert.Equal(t, rect, byFull.Token())

	byShort, err := s.FindTypeDef("RECT", X64)
	require.NoError(t, err)
	assert.Same(t, byFull, byShort)

	assert.Same(t, byFull, s.FindTypeDefByToken(rect))
	assert.Zero(t, f.m.OpenEnumerators())
}

func TestFindTypeDefMisses(t *testing.T) {
	s := newFixture(t).scope()

	td, err := s.FindTypeDef("Windows.Win32.Foundation.POINT", X64)
	assert.NoError(t, err)
	assert.Nil(t, td)

	_, err = s.FindTypeDef("", X64)
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestFindTypeDefByTokenDoesNotResolveReferences(t *testing.T) {
	f := newFixture(t)
	ref := f.ref("Windows.Win32.UI.WindowsAndMessaging.Apis")
	s := f.scope()

	assert.Nil(t, s.FindTypeDefByToken(ref))
	assert.Nil(t, s.FindTypeDefByToken(token.New(token.TypeDef, 99)))
}

func TestFindTypeDefArchitectureVariants(t *testing.T) {
	f := newFixture(t)
	base := f.ref("System.ValueType")
	x64 := f.m.AddTypeDef("Windows.Win32.System.Diagnostics.Debug", "CONTEXT", tdPublicStruct, base)
	f.architecture(x64, X64)
	arm64 := f.m.AddTypeDef("Windows.Win32.System.Diagnostics.Debug", "CONTEXT", tdPublicStruct, base)
	f.architecture(arm64, Arm64)

	s := f.scope()

	tests := []struct {
		arch Architecture
		want token.Token
	}{
		{X64, x64},
		{Arm64, arm64},
		{X86, 0},
	}
	for _, tc := range tests {
		t.Run(tc.arch.String(), func(t *testing.T) {
			td, err := s.FindTypeDef("Windows.Win32.System.Diagnostics.Debug.CONTEXT", tc.arch)
			require.NoError(t, err)
			if tc.want == 0 {
				assert.Nil(t, td)
				return
			}
			require.NotNil(t, td)
			assert.Equal(t, tc.want, td.Token())
		})
	}
}

func TestFindTypeDefFirstMatchWins(t *testing.T) {
	f := newFixture(t)
	base := f.ref("System.ValueType")
	first := f.m.AddTypeDef("Windows.Win32.System.Kernel", "SLIST_HEADER", tdPublicStruct, base)
	f.architecture(first, X64|Arm64)
	second := f.m.AddTypeDef("Windows.Win32.System.Kernel", "SLIST_HEADER", tdPublicStruct, base)
	f.architecture(second, Arm64)

	td, err := f.scope().FindTypeDef("SLIST_HEADER", Arm64)
	require.NoError(t, err)
	assert.Equal(t, first, td.Token())
}

func TestScopeReferences(t *testing.T) {
	f := newFixture(t)
	f.m.AddModuleRef("USER32.dll")
	f.m.AddModuleRef("KERNEL32.dll")
	f.m.AddAssemblyRef("netstandard", "2.1.0.0")
	f.m.AddUserString("hello")

	s := f.scope()

	mods, err := s.ModuleRefs()
	require.NoError(t, err)
	assert.Equal(t, []string{"USER32.dll", "KERNEL32.dll"}, mods)

	asms, err := s.AssemblyRefs()
	require.NoError(t, err)
	assert.Equal(t, []AssemblyRef{{Name: "netstandard", Version: "2.1.0.0"}}, asms)

	strs, err := s.UserStrings()
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, strs)
	assert.Zero(t, f.m.OpenEnumerators())
}

func TestNewScopePropagatesBackendFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")
	f.m.Fail("TypeDefProps", boom)

	_, err := NewScope(f.m, nil)
	assert.ErrorIs(t, err, backend.ErrFailure)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, f.m.OpenEnumerators())
}

func TestTokenObjectEquality(t *testing.T) {
	a := newFixture(t).scope()
	b := newFixture(t).scope()

	tdA := a.FindTypeDefByToken(token.New(token.TypeDef, 2))
	tdB := b.FindTypeDefByToken(token.New(token.TypeDef, 2))
	require.NotNil(t, tdA)
	require.NotNil(t, tdB)

	assert.Equal(t, tdA.Token(), tdB.Token())
	assert.False(t, tdA.TokenObject.Equal(tdB.TokenObject))
	assert.True(t, tdA.Key() != tdB.Key())
	assert.True(t, tdA.TokenObject.Equal(a.FindTypeDefByToken(token.New(token.TypeDef, 2)).TokenObject))

	keys := map[Key]*TypeDef{tdA.Key(): tdA, tdB.Key(): tdB}
	assert.Len(t, keys, 2)
	assert.Same(t, tdA, keys[a.FindTypeDefByToken(token.New(token.TypeDef, 2)).Key()])
}

func TestFindTypeDefInteropArchitectureVariants(t *testing.T) {
	f := newFixture(t)
	base := f.ref("System.ValueType")
	arm64 := f.m.AddTypeDef("Windows.Win32.System.Diagnostics.Debug", "CONTEXT", tdPublicStruct, base)
	f.enumAttribute(arm64, supportedArchitectureAttributes[1], "Windows.Win32.Interop.Architecture", int32(Arm64))
	x64 := f.m.AddTypeDef("Windows.Win32.System.Diagnostics.Debug", "CONTEXT", tdPublicStruct, base)
	f.enumAttribute(x64, supportedArchitectureAttributes[1], "Windows.Win32.Interop.Architecture", int32(X64))
	s := f.scope()

	td, err := s.FindTypeDef("CONTEXT", X64)
	require.NoError(t, err)
	require.NotNil(t, td)
	assert.Equal(t, x64, td.Token())

	arch, err := s.FindTypeDefByToken(arm64).SupportedArchitectures()
	require.NoError(t, err)
	assert.Equal(t, Arm64, arch)
}
