package metadata

import (
	"fmt"
	"strings"
)

// Architecture is a set of processor architectures.
type Architecture uint8

const (
	X86   Architecture = 1 << 0
	X64   Architecture = 1 << 1
	Arm64 Architecture = 1 << 2

	AllArchitectures = X86 | X64 | Arm64
)

var architectureNames = []struct {
	arch Architecture
	name string
}{
	{X86, "x86"},
	{X64, "x64"},
	{Arm64, "arm64"},
}

// Has reports whether every architecture in other is in a.
func (a Architecture) Has(other Architecture) bool {
	return other != 0 && a&other == other
}

func (a Architecture) String() string {
	var names []string
	for _, n := range architectureNames {
		if a&n.arch != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseArchitecture accepts a single name or a list joined by '|' or ','.
func ParseArchitecture(s string) (Architecture, error) {
	var a Architecture
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "x86", "386", "i386":
			a |= X86
		case "x64", "amd64":
			a |= X64
		case "arm64", "aarch64":
			a |= Arm64
		default:
			return 0, fmt.Errorf("unknown architecture %q", part)
		}
	}
	if a == 0 {
		return 0, fmt.Errorf("empty architecture %q", s)
	}
	return a, nil
}
