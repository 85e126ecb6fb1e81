package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/hupe1980/termdict"
	"github.com/hupe1980/termdict/blobstore"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	StoreURL   string
	Format     string // "json" | "text"
	Verbose    bool

	// Config is resolved from the config file and flags before a
	// subcommand runs.
	Config Config

	diskCache *termdict.DiskCache
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the termdict CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "termdict",
		Short: "Build and query term dictionary segments",
		Long: `termdict builds immutable term dictionary segments and queries them.

Segments live in a store selected with --store: a local directory, mem://,
s3://bucket/prefix, s3express://bucket/prefix or minio://bucket/prefix.
Settings can also be read from a YAML file given with --config; flags take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg := DefaultConfig()
			if opts.ConfigPath != "" {
				var err error
				if cfg, err = LoadConfig(opts.ConfigPath); err != nil {
					return WrapExitError(ExitCommandError, "config", err)
				}
			}
			if cmd.Flags().Changed("store") {
				cfg.Store.URL = opts.StoreURL
			}
			if opts.Verbose {
				cfg.Log.Level = "debug"
			}
			opts.Config = cfg
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.close()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVarP(&opts.StoreURL, "store", "s", ".", "segment store (directory, mem://, s3://, s3express://, minio://bucket/prefix)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")

	cmd.AddCommand(NewBuildCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewSeekCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewListCommand(opts))

	return cmd
}

func (o *RootOptions) output(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

func (o *RootOptions) store(ctx context.Context) (blobstore.WritableStore, error) {
	s, err := OpenStore(ctx, o.Config.Store)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "store", err)
	}
	return s, nil
}

func (o *RootOptions) options() ([]termdict.Option, error) {
	opts, err := o.Config.Options()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "config", err)
	}
	return opts, nil
}

// readOptions adds the disk cache, opened on first use, to the options.
func (o *RootOptions) readOptions() ([]termdict.Option, error) {
	opts, err := o.options()
	if err != nil {
		return nil, err
	}
	dir := o.Config.Read.DiskCacheDir
	if dir == "" {
		return opts, nil
	}
	if o.diskCache == nil {
		size := o.Config.Read.DiskCacheSize
		if size <= 0 {
			size = defaultDiskCacheSize
		}
		d, err := termdict.NewDiskCache(dir, size)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "disk cache", err)
		}
		o.diskCache = d
	}
	return append(opts, termdict.WithDiskCache(o.diskCache)), nil
}

// close flushes the disk cache. Pending writes are dropped when a command
// fails, which only costs a colder cache.
func (o *RootOptions) close() error {
	if o.diskCache == nil {
		return nil
	}
	err := o.diskCache.Close()
	o.diskCache = nil
	return err
}

// openSegment opens a segment for reading.
func (o *RootOptions) openSegment(ctx context.Context, name string) (*termdict.Reader, error) {
	store, err := o.store(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := o.readOptions()
	if err != nil {
		return nil, err
	}
	r, err := termdict.Open(ctx, readStore(store, o.Config.Store), name, opts...)
	if err != nil {
		return nil, classify(fmt.Sprintf("open segment %q", name), err)
	}
	return r, nil
}

// classify maps library errors to exit codes.
func classify(msg string, err error) error {
	switch {
	case errors.Is(err, termdict.ErrNotFound), errors.Is(err, termdict.ErrFieldNotFound),
		errors.Is(err, termdict.ErrInvalidOptions), errors.Is(err, termdict.ErrExists):
		return WrapExitError(ExitCommandError, msg, err)
	default:
		return WrapExitError(ExitFailure, msg, err)
	}
}
