package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gowinmd/internal/config"
	"gowinmd/internal/logging"
	"gowinmd/internal/metadata"
)

// app carries the state shared by the subcommands once flags are parsed.
type app struct {
	configPath string
	noColor    bool

	cfg   *config.Config
	log   *zap.Logger
	store *metadata.Store

	opener metadata.Opener
}

func newApp() *app {
	return &app{}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "gowinmd",
		Short: "Read Windows metadata and generate Go bindings",
		Long: color.CyanString(`gowinmd - Windows metadata reader

Inspects .winmd files (Win32 and Windows Runtime) and generates Go structs
and syscall stubs for the APIs they describe.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./gowinmd.yaml)")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	flags.String("metadata-path", "Windows.Win32.winmd", "path to the metadata file")
	flags.String("architecture", "x64", "target architecture: x86, x64 or arm64")
	flags.Int("cache-size", 16, "number of metadata scopes kept open")
	flags.String("log-level", "info", "log level: debug, info, warn or error")

	root.AddCommand(newGenerateCommand(a))
	root.AddCommand(newShowCommand(a))
	root.AddCommand(newTypesCommand(a))
	root.AddCommand(newFetchCommand(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.noColor {
		color.NoColor = true
	}

	cfg, err := config.Load(a.configPath, config.WithFlags(cmd.Flags()))
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.log == nil {
		if a.log, err = logging.New(cfg.LogLevel); err != nil {
			return err
		}
	}

	opts := []metadata.Option{metadata.WithLogger(a.log), metadata.WithCacheSize(cfg.CacheSize)}
	if a.opener != nil {
		opts = append(opts, metadata.WithOpener(a.opener))
	}
	a.store, err = metadata.NewStore(opts...)
	return err
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	_ = a.log.Sync()
	return err
}

func (a *app) scope() (*metadata.Scope, error) {
	s, err := a.store.LoadScopeFromFile(a.cfg.MetadataPath)
	if err != nil {
		return nil, fmt.Errorf("%w (run `gowinmd fetch` to download the metadata)", err)
	}
	return s, nil
}
