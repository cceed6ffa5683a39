package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newTypesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types [namespace]",
		Short: "List the type definitions",
		Long:  "List every type definition in the metadata file, optionally only those whose namespace starts with the given prefix.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return a.types(cmd.OutOrStdout(), prefix)
		},
	}
}

func (a *app) types(out io.Writer, prefix string) error {
	scope, err := a.scope()
	if err != nil {
		return err
	}

	count := 0
	for _, td := range scope.TypeDefs() {
		if td.Namespace() == "" || !strings.HasPrefix(td.Namespace(), prefix) {
			continue
		}
		kindColor.Fprintf(out, "%-9s ", td.Kind())
		fmt.Fprintln(out, td.FullName())
		count++
	}
	detailColor.Fprintf(out, "%d types\n", count)
	return nil
}
