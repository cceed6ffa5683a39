package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gowinmd/internal/backend"
	"gowinmd/internal/signature"
	"gowinmd/internal/token"
)

func memoryMetadata(t *testing.T) *backend.Memory {
	t.Helper()
	enc := func(tok token.Token) []byte {
		b, err := signature.EncodeCompressedToken(tok)
		require.NoError(t, err)
		return b
	}

	m := backend.NewMemory("Windows.Win32.winmd")
	m.AddTypeDef("", "<Module>", 0, 0)
	valueType := m.AddTypeRef("System", "ValueType")
	apis := m.AddTypeDef("Windows.Win32.UI.WindowsAndMessaging", "Apis", 0x00100181, m.AddTypeRef("System", "Object"))

	hwnd := m.AddTypeDef("Windows.Win32.Foundation", "HWND", 0x00100109, valueType)
	m.AddField(hwnd, "Value", 0x6, []byte{0x06, byte(signature.ElementTypeI)})
	m.AddAttribute(hwnd, "Windows.Win32.Foundation.Metadata.NativeTypedefAttribute", []byte{0x20, 0x00, 0x01}, []byte{0x01, 0x00, 0x00, 0x00})

	rect := m.AddTypeDef("Windows.Win32.Foundation", "RECT", 0x00100109, valueType)
	for _, name := range []string{"left", "top", "right", "bottom"} {
		m.AddField(rect, name, 0x6, []byte{0x06, byte(signature.ElementTypeI4)})
	}

	sig := []byte{0x00, 2, byte(signature.ElementTypeI4), byte(signature.ElementTypeValueType)}
	sig = append(sig, enc(hwnd)...)
	sig = append(sig, byte(signature.ElementTypePtr), byte(signature.ElementTypeValueType))
	sig = append(sig, enc(rect)...)
	method := m.AddMethod(apis, "GetWindowRect", 0x2096, sig)
	m.AddParam(method, 1, "hWnd", 0x1)
	m.AddParam(method, 2, "lpRect", 0x2)
	m.SetPInvoke(method, "GetWindowRect", m.AddModuleRef("USER32.dll"))
	return m
}

// workspace runs the test from an empty directory holding a placeholder
// metadata file.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
	require.NoError(t, os.WriteFile("Windows.Win32.winmd", nil, 0o644))
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	a := newApp()
	a.log = zap.NewNop()
	a.opener = func(string) (backend.Backend, error) { return memoryMetadata(t), nil }

	root := newRootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--no-color"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := newRootCommand(newApp())
	assert.Equal(t, "gowinmd", cmd.Use)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"generate", "show", "types", "fetch"} {
		assert.Contains(t, names, want)
	}
}

func TestTypesCommand(t *testing.T) {
	workspace(t)

	out, err := run(t, "", "types", "Windows.Win32.Foundation")
	require.NoError(t, err)
	assert.Contains(t, out, "Windows.Win32.Foundation.RECT")
	assert.Contains(t, out, "Windows.Win32.Foundation.HWND")
	assert.NotContains(t, out, "Apis")
	assert.Contains(t, out, "2 types")
}

func TestShowCommand(t *testing.T) {
	workspace(t)

	out, err := run(t, "", "show", "RECT")
	require.NoError(t, err)
	assert.Contains(t, out, "struct Windows.Win32.Foundation.RECT")
	assert.Contains(t, out, "  left int")

	out, err = run(t, "", "show", "GetWindowRect")
	require.NoError(t, err)
	assert.Contains(t, out, "GetWindowRect([in] hWnd Windows.Win32.Foundation.HWND, [out] lpRect Windows.Win32.Foundation.RECT*) int [USER32.dll]")

	_, err = run(t, "", "show", "CreateWindowExW")
	assert.Error(t, err)
}

func TestGenerateFromTextList(t *testing.T) {
	dir := workspace(t)
	require.NoError(t, os.WriteFile("apis.txt", []byte("GetWindowRect\n# structs\n\nRECT\nMissingName\n"), 0o644))

	out, err := run(t, "", "generate", "--input", "apis.txt", "--output-path", "out", "--package-name", "win32")
	require.NoError(t, err)
	assert.Contains(t, out, "Generated 1 methods and 2 types")

	for _, name := range []string{"win32.go", "HWND.go", "RECT.go"} {
		assert.FileExists(t, filepath.Join(dir, "out", name))
	}
	src, err := os.ReadFile(filepath.Join(dir, "out", "win32.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "func GetWindowRect(hWnd HWND, lpRect *RECT) int32 {")
}

func TestGenerateFromManifest(t *testing.T) {
	dir := workspace(t)
	require.NoError(t, os.WriteFile("apis.yaml", []byte("package: user32\nmethods:\n  - GetWindowRect\ntypes:\n  - HWND\n"), 0o644))

	_, err := run(t, "", "generate", "-i", "apis.yaml", "-o", "gen")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "gen", "user32.go"))
}

func TestGenerateRequiresInput(t *testing.T) {
	workspace(t)

	_, err := run(t, "", "generate")
	assert.ErrorContains(t, err, "input file path is missing")
}

func TestClearDirectoryIfNotEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.go"), nil, 0o644))

	var out bytes.Buffer
	err := clearDirectoryIfNotEmpty(dir, false, strings.NewReader("n\n"), &out)
	assert.Error(t, err)
	assert.FileExists(t, filepath.Join(dir, "old.go"))
	assert.Contains(t, out.String(), "[y/N]")

	err = clearDirectoryIfNotEmpty(dir, false, strings.NewReader("\n"), &out)
	assert.Error(t, err)
	assert.FileExists(t, filepath.Join(dir, "old.go"))

	require.NoError(t, clearDirectoryIfNotEmpty(dir, false, strings.NewReader("y\n"), &out))
	assert.NoDirExists(t, dir)

	require.NoError(t, clearDirectoryIfNotEmpty(dir, true, nil, &out))
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "list.txt")
	require.NoError(t, os.WriteFile(text, []byte("  MessageBoxW  \n#skip\n\nRECT\n"), 0o644))

	m, err := readManifest(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"MessageBoxW", "RECT"}, m.names())

	empty := filepath.Join(dir, "empty.yml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	m, err = readManifest(empty)
	require.NoError(t, err)
	assert.Empty(t, m.names())

	_, err = readManifest(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
