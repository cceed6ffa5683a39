package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gowinmd/internal/metadata"
)

var (
	kindColor   = color.New(color.FgMagenta, color.Bold)
	nameColor   = color.New(color.FgCyan, color.Bold)
	typeColor   = color.New(color.FgYellow)
	detailColor = color.New(color.FgHiBlack)
)

func newShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Describe a type or method",
		Long:  "Print a type with its fields, methods, properties, events and interfaces, or a method with its parameters and import.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.show(cmd.OutOrStdout(), args[0])
		},
	}
}

func (a *app) show(out io.Writer, name string) error {
	scope, err := a.scope()
	if err != nil {
		return err
	}

	td, err := scope.FindTypeDef(name, a.cfg.Arch)
	if err != nil {
		return err
	}
	if td != nil {
		return showType(out, td)
	}

	m, err := scope.FindMethod(name)
	if err != nil {
		return err
	}
	if m != nil {
		return showMethod(out, m, "")
	}
	return fmt.Errorf("%q is neither a type nor a method in %s", name, scope.Name())
}

func showType(out io.Writer, td *metadata.TypeDef) error {
	kindColor.Fprintf(out, "%s ", td.Kind())
	nameColor.Fprintln(out, td.FullName())

	arch, err := td.SupportedArchitectures()
	if err != nil {
		return err
	}
	if arch != metadata.AllArchitectures {
		detailColor.Fprintf(out, "  architectures: %s\n", arch)
	}
	if id, ok, err := td.GUID(); err != nil {
		return err
	} else if ok {
		detailColor.Fprintf(out, "  guid: %s\n", id)
	}
	if base := td.BaseTypeName(); base != "" {
		detailColor.Fprintf(out, "  extends: %s\n", base)
	}

	ifaces, err := td.Interfaces()
	if err != nil {
		return err
	}
	for _, iface := range ifaces {
		detailColor.Fprintf(out, "  implements: %s\n", iface)
	}

	fields, err := td.Fields()
	if err != nil {
		return err
	}
	for _, f := range fields {
		t, err := f.TypeIdentifier()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s ", f.Name())
		typeColor.Fprintln(out, t)
	}

	props, err := td.Properties()
	if err != nil {
		return err
	}
	for _, p := range props {
		t, err := p.TypeIdentifier()
		if err != nil {
			return err
		}
		kindColor.Fprint(out, "  property ")
		fmt.Fprintf(out, "%s ", p.Name())
		typeColor.Fprintln(out, t)
	}

	events, err := td.Events()
	if err != nil {
		return err
	}
	for _, e := range events {
		kindColor.Fprint(out, "  event ")
		fmt.Fprintf(out, "%s ", e.Name())
		typeColor.Fprintln(out, e.TypeIdentifier())
	}

	methods, err := td.Methods()
	if err != nil {
		return err
	}
	for _, m := range methods {
		if err := showMethod(out, m, "  "); err != nil {
			return err
		}
	}
	return nil
}

func showMethod(out io.Writer, m *metadata.Method, indent string) error {
	params, err := m.Parameters()
	if err != nil {
		return err
	}
	ret, err := m.ReturnType()
	if err != nil {
		return err
	}

	fmt.Fprint(out, indent)
	nameColor.Fprint(out, m.Name())
	fmt.Fprint(out, "(")
	for i, p := range params {
		if i > 0 {
			fmt.Fprint(out, ", ")
		}
		if dir := direction(p); dir != "" {
			detailColor.Fprintf(out, "[%s] ", dir)
		}
		fmt.Fprintf(out, "%s ", p.Name())
		typeColor.Fprint(out, p.TypeIdentifier())
	}
	fmt.Fprint(out, ") ")
	typeColor.Fprint(out, ret)

	dll, err := m.DllImport()
	if err != nil {
		return err
	}
	if dll != "" {
		detailColor.Fprintf(out, " [%s]", dll)
	}
	fmt.Fprintln(out)
	return nil
}

func direction(p *metadata.Parameter) string {
	var parts []string
	if p.IsIn() {
		parts = append(parts, "in")
	}
	if p.IsOut() {
		parts = append(parts, "out")
	}
	if p.IsOptional() {
		parts = append(parts, "opt")
	}
	return strings.Join(parts, ",")
}
