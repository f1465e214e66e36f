package main

import (
	"fmt"

	"github.com/devraulu/normurl/pkg/config"
	"github.com/devraulu/normurl/pkg/logger"
	"github.com/devraulu/normurl/pkg/normalize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type app struct {
	cfgFile string
	cfg     *config.Config
	n       *normalize.Normalizer

	logLevel  string
	logFormat string
	flags     config.NormalizeConfig
}

func newRootCmd() *cobra.Command {
	a := &app{}
	defaults := config.Default().Normalize

	root := &cobra.Command{
		Use:           "normurl",
		Short:         "Normalize URLs into canonical keys",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Flags())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "TOML config file")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "", "log format (text, json)")

	f := &a.flags
	pf.StringVar(&f.DefaultProtocol, "default-protocol", defaults.DefaultProtocol, "scheme prepended to inputs without one")
	pf.BoolVar(&f.NormalizeProtocol, "normalize-protocol", defaults.NormalizeProtocol, "turn protocol-relative URLs into absolute ones")
	pf.BoolVar(&f.ForceHTTP, "force-http", defaults.ForceHTTP, "rewrite https to http")
	pf.BoolVar(&f.ForceHTTPS, "force-https", defaults.ForceHTTPS, "rewrite http to https")
	pf.BoolVar(&f.StripAuthentication, "strip-authentication", defaults.StripAuthentication, "drop user:password@")
	pf.BoolVar(&f.StripHash, "strip-hash", defaults.StripHash, "drop the fragment")
	pf.BoolVar(&f.StripProtocol, "strip-protocol", defaults.StripProtocol, "drop http:// and https:// from the output")
	pf.BoolVar(&f.StripTextFragment, "strip-text-fragment", defaults.StripTextFragment, "drop :~:text= fragment directives")
	pf.BoolVar(&f.StripWWW, "strip-www", defaults.StripWWW, "drop a leading www.")
	pf.StringSliceVar(&f.RemoveQueryParameters, "remove-query-parameters", defaults.RemoveQueryParameters, "patterns of query keys to drop")
	pf.BoolVar(&f.RemoveAllQueryParameters, "remove-all-query-parameters", defaults.RemoveAllQueryParameters, "drop the whole query")
	pf.StringSliceVar(&f.KeepQueryParameters, "keep-query-parameters", defaults.KeepQueryParameters, "patterns of query keys to keep; overrides removal")
	pf.BoolVar(&f.RemoveTrailingSlash, "remove-trailing-slash", defaults.RemoveTrailingSlash, "drop a trailing / from the path")
	pf.BoolVar(&f.RemoveSingleSlash, "remove-single-slash", defaults.RemoveSingleSlash, "drop a path that is only /")
	pf.StringVar(&f.RemoveDirectoryIndex, "remove-directory-index", defaults.RemoveDirectoryIndex, "none, default or list")
	pf.StringSliceVar(&f.DirectoryIndexPatterns, "directory-index-patterns", defaults.DirectoryIndexPatterns, "patterns used with --remove-directory-index=list")
	pf.BoolVar(&f.RemoveExplicitPort, "remove-explicit-port", defaults.RemoveExplicitPort, "drop any port")
	pf.BoolVar(&f.SortQueryParameters, "sort-query-parameters", defaults.SortQueryParameters, "sort query parameters by key")

	root.AddCommand(
		newNormalizeCmd(a),
		newDedupeCmd(a),
		newExtractCmd(a),
		newMigrateCmd(a),
		newServeCmd(a),
	)
	return root
}

// init loads the config file and lets explicitly set flags win over it.
func (a *app) init(flags *pflag.FlagSet) error {
	cfg := config.Default()
	if a.cfgFile != "" {
		loaded, err := config.Load(a.cfgFile)
		if err != nil {
			return fmt.Errorf("couldn't load config: %w", err)
		}
		cfg = loaded
	}

	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}

	overrideNormalize(&cfg.Normalize, &a.flags, flags)

	logger.InitLogger(cfg)

	opts, err := cfg.NormalizeOptions()
	if err != nil {
		return err
	}
	n, err := normalize.New(opts)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.n = n
	return nil
}

func overrideNormalize(dst, src *config.NormalizeConfig, flags *pflag.FlagSet) {
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("default-protocol", func() { dst.DefaultProtocol = src.DefaultProtocol })
	set("normalize-protocol", func() { dst.NormalizeProtocol = src.NormalizeProtocol })
	set("force-http", func() { dst.ForceHTTP = src.ForceHTTP })
	set("force-https", func() { dst.ForceHTTPS = src.ForceHTTPS })
	set("strip-authentication", func() { dst.StripAuthentication = src.StripAuthentication })
	set("strip-hash", func() { dst.StripHash = src.StripHash })
	set("strip-protocol", func() { dst.StripProtocol = src.StripProtocol })
	set("strip-text-fragment", func() { dst.StripTextFragment = src.StripTextFragment })
	set("strip-www", func() { dst.StripWWW = src.StripWWW })
	set("remove-query-parameters", func() { dst.RemoveQueryParameters = src.RemoveQueryParameters })
	set("remove-all-query-parameters", func() { dst.RemoveAllQueryParameters = src.RemoveAllQueryParameters })
	set("keep-query-parameters", func() { dst.KeepQueryParameters = src.KeepQueryParameters })
	set("remove-trailing-slash", func() { dst.RemoveTrailingSlash = src.RemoveTrailingSlash })
	set("remove-single-slash", func() { dst.RemoveSingleSlash = src.RemoveSingleSlash })
	set("remove-directory-index", func() { dst.RemoveDirectoryIndex = src.RemoveDirectoryIndex })
	set("directory-index-patterns", func() { dst.DirectoryIndexPatterns = src.DirectoryIndexPatterns })
	set("remove-explicit-port", func() { dst.RemoveExplicitPort = src.RemoveExplicitPort })
	set("sort-query-parameters", func() { dst.SortQueryParameters = src.SortQueryParameters })
}
