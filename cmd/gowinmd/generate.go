package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"gowinmd/internal/generation"
	"gowinmd/internal/nuget"
)

// manifest is the YAML form of the generator input.
type manifest struct {
	Package string   `yaml:"package"`
	Methods []string `yaml:"methods"`
	Types   []string `yaml:"types"`
}

func (m manifest) names() []string {
	return append(append([]string{}, m.Methods...), m.Types...)
}

func newGenerateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate Go bindings for the listed methods and types",
		Long: `Generate Go structs and syscall stubs for the methods and types named in the
input file. The input is either plain text with one name per line, or a YAML
manifest with "methods" and "types" lists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generate(cmd)
		},
	}
	flags := cmd.Flags()
	flags.StringP("input", "i", "", "file listing the methods and types to generate")
	flags.String("package-name", "PInvoke", "package name of the generated code")
	flags.StringP("output-path", "o", "./output/", "directory for the generated files")
	flags.Bool("force-clean", false, "clean a non-empty output directory without asking")
	return cmd
}

func (a *app) generate(cmd *cobra.Command) error {
	cfg := a.cfg
	if cfg.Input == "" {
		return errors.New("input file path is missing")
	}
	m, err := readManifest(cfg.Input)
	if err != nil {
		return err
	}
	pkg := cfg.PackageName
	if m.Package != "" {
		pkg = m.Package
	}

	if _, err := os.Stat(cfg.MetadataPath); errors.Is(err, os.ErrNotExist) {
		a.log.Info("metadata file missing, downloading", zap.String("path", cfg.MetadataPath))
		if _, err := nuget.NewClient(nuget.WithLogger(a.log)).Latest(cmd.Context(), cfg.MetadataPath); err != nil {
			return err
		}
	}

	if err := clearDirectoryIfNotEmpty(cfg.OutputPath, cfg.ForceClean, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		return err
	}

	scope, err := a.scope()
	if err != nil {
		return err
	}
	g := generation.NewGenerator(scope, pkg, generation.WithLogger(a.log), generation.WithArchitecture(cfg.Arch))
	for _, name := range m.names() {
		ok, err := g.Register(name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if !ok {
			a.log.Warn("name not found in metadata", zap.String("name", name))
		}
	}

	if err := g.Generate(cfg.OutputPath); err != nil {
		return err
	}
	color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "Generated %d methods and %d types in %s\n",
		len(g.Methods()), len(g.Types()), cfg.OutputPath)
	return nil
}

// readManifest accepts a YAML manifest (.yaml or .yml) or a plain list with
// one name per line. Blank lines and lines starting with # are skipped.
func readManifest(path string) (manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return manifest{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var m manifest
		if err := yaml.NewDecoder(f).Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return manifest{}, fmt.Errorf("parsing %s: %w", path, err)
		}
		return m, nil
	}

	var m manifest
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.Methods = append(m.Methods, line)
	}
	return m, scanner.Err()
}

// clearDirectoryIfNotEmpty removes the contents of a non-empty output
// directory, asking for confirmation unless force is set.
func clearDirectoryIfNotEmpty(path string, force bool, in io.Reader, out io.Writer) error {
	dir, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = dir.Readdirnames(1)
	dir.Close()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}

	if !force {
		color.New(color.FgYellow).Fprint(out, "Output directory is not empty. Continuation will result in removing all output files. Proceed? [y/N] ")
		var response string
		fmt.Fscanln(in, &response)
		if strings.ToUpper(strings.TrimSpace(response)) != "Y" {
			return errors.New("explicit agreement was not given")
		}
	}

	fmt.Fprintln(out, "Cleaning output directory.")
	return os.RemoveAll(path)
}
