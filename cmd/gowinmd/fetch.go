package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gowinmd/internal/nuget"
)

func newFetchCommand(a *app) *cobra.Command {
	var indexURL string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the latest Win32 metadata package",
		Long:  "Download the newest Microsoft.Windows.SDK.Win32Metadata package from NuGet and extract its .winmd to the metadata path.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.fetch(cmd, indexURL)
		},
	}
	cmd.Flags().StringVar(&indexURL, "index-url", nuget.DefaultIndexURL, "NuGet v3 service index")
	return cmd
}

func (a *app) fetch(cmd *cobra.Command, indexURL string) error {
	client := nuget.NewClient(nuget.WithIndexURL(indexURL), nuget.WithLogger(a.log))
	v, err := client.Latest(cmd.Context(), a.cfg.MetadataPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	color.New(color.FgGreen, color.Bold).Fprint(out, "Downloaded ")
	color.New(color.FgWhite).Fprintf(out, "%s %s -> %s\n", nuget.PackageID, v.Original(), a.cfg.MetadataPath)
	return nil
}
