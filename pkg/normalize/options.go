package normalize

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// QueryFilter selects which query parameters are removed.
type QueryFilter struct {
	all      bool
	patterns []*regexp2.Regexp
}

// RemoveNone keeps every query parameter.
func RemoveNone() QueryFilter { return QueryFilter{} }

// RemoveAll drops the whole query string.
func RemoveAll() QueryFilter { return QueryFilter{all: true} }

// RemoveMatching drops every parameter whose key matches one of patterns.
func RemoveMatching(patterns ...*regexp2.Regexp) QueryFilter {
	return QueryFilter{patterns: patterns}
}

func (f QueryFilter) String() string {
	switch {
	case f.all:
		return "all"
	case len(f.patterns) > 0:
		return fmt.Sprintf("matching(%d)", len(f.patterns))
	default:
		return "none"
	}
}

// DirectoryIndex selects which trailing path segments count as a directory index.
type DirectoryIndex struct {
	enabled  bool
	custom   bool
	patterns []*regexp2.Regexp
}

// KeepDirectoryIndex never removes the last path segment.
func KeepDirectoryIndex() DirectoryIndex { return DirectoryIndex{} }

// DefaultDirectoryIndex removes a last segment matching ^index\.[a-z]+$.
func DefaultDirectoryIndex() DirectoryIndex { return DirectoryIndex{enabled: true} }

// DirectoryIndexMatching removes a last segment matching one of patterns.
func DirectoryIndexMatching(patterns ...*regexp2.Regexp) DirectoryIndex {
	return DirectoryIndex{enabled: true, custom: true, patterns: patterns}
}

func (d DirectoryIndex) resolve() []*regexp2.Regexp {
	if !d.enabled {
		return nil
	}
	if !d.custom {
		return []*regexp2.Regexp{rxDefaultDirectoryIndex}
	}
	return d.patterns
}

// Options controls every stage of the pipeline. The zero value is not
// useful; start from DefaultOptions.
type Options struct {
	// DefaultProtocol is prepended to inputs without a scheme.
	DefaultProtocol string
	// NormalizeProtocol turns "//host" into "<DefaultProtocol>://host".
	NormalizeProtocol bool
	ForceHTTP         bool
	ForceHTTPS        bool
	// StripAuthentication drops "user:password@".
	StripAuthentication bool
	StripHash           bool
	// StripProtocol drops a leading http:// or https:// from the result.
	StripProtocol bool
	// StripTextFragment drops ":~:text=..." from the fragment. StripHash wins.
	StripTextFragment bool
	StripWWW          bool
	// RemoveQueryParameters is ignored when KeepQueryParameters is non-nil.
	RemoveQueryParameters QueryFilter
	// KeepQueryParameters keeps only matching keys. Nil means unset.
	KeepQueryParameters []*regexp2.Regexp
	RemoveTrailingSlash bool
	// RemoveSingleSlash drops a sole "/" path, independent of RemoveTrailingSlash.
	RemoveSingleSlash    bool
	RemoveDirectoryIndex DirectoryIndex
	// RemoveExplicitPort drops any port. Default ports are always dropped.
	RemoveExplicitPort  bool
	SortQueryParameters bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		DefaultProtocol:       "http",
		NormalizeProtocol:     true,
		StripAuthentication:   true,
		StripTextFragment:     true,
		StripWWW:              true,
		RemoveQueryParameters: RemoveMatching(rxUTM),
		RemoveTrailingSlash:   true,
		RemoveSingleSlash:     true,
		RemoveDirectoryIndex:  KeepDirectoryIndex(),
		SortQueryParameters:   true,
	}
}

// Validate reports configuration errors. It never looks at an input URL.
func (o Options) Validate() error {
	if o.ForceHTTP && o.ForceHTTPS {
		return ErrForceSchemeExclusive
	}
	return nil
}

// Option overrides a single field of the defaults.
type Option func(*Options)

// NewOptions applies opts over DefaultOptions and validates the result.
func NewOptions(opts ...Option) (Options, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// The With functions below each set the Options field of the same name.

func WithDefaultProtocol(p string) Option { return func(o *Options) { o.DefaultProtocol = p } }
func WithNormalizeProtocol(v bool) Option { return func(o *Options) { o.NormalizeProtocol = v } }
func WithForceHTTP(v bool) Option { return func(o *Options) { o.ForceHTTP = v } }
func WithForceHTTPS(v bool) Option { return func(o *Options) { o.ForceHTTPS = v } }
func WithStripAuthentication(v bool) Option { return func(o *Options) { o.StripAuthentication = v } }
func WithStripHash(v bool) Option { return func(o *Options) { o.StripHash = v } }
func WithStripProtocol(v bool) Option { return func(o *Options) { o.StripProtocol = v } }
func WithStripTextFragment(v bool) Option { return func(o *Options) { o.StripTextFragment = v } }
func WithStripWWW(v bool) Option { return func(o *Options) { o.StripWWW = v } }
func WithRemoveTrailingSlash(v bool) Option { return func(o *Options) { o.RemoveTrailingSlash = v } }
func WithRemoveSingleSlash(v bool) Option { return func(o *Options) { o.RemoveSingleSlash = v } }
func WithRemoveExplicitPort(v bool) Option { return func(o *Options) { o.RemoveExplicitPort = v } }
func WithSortQueryParameters(v bool) Option { return func(o *Options) { o.SortQueryParameters = v } }

// WithRemoveQueryParameters sets the remove filter. It is ignored while a
// keep list is set.
func WithRemoveQueryParameters(f QueryFilter) Option {
	return func(o *Options) { o.RemoveQueryParameters = f }
}

// WithRemoveDirectoryIndex chooses how a trailing index file is dropped.
func WithRemoveDirectoryIndex(d DirectoryIndex) Option {
	return func(o *Options) { o.RemoveDirectoryIndex = d }
}

// WithKeepQueryParameters sets the keep list. An empty, non-nil list keeps
// nothing.
func WithKeepQueryParameters(patterns ...*regexp2.Regexp) Option {
	return func(o *Options) {
		if patterns == nil {
			patterns = []*regexp2.Regexp{}
		}
		o.KeepQueryParameters = patterns
	}
}

// CompilePatterns compiles user supplied expressions with the same engine
// the pipeline uses.
func CompilePatterns(exprs ...string) ([]*regexp2.Regexp, error) {
	out := make([]*regexp2.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		rx, err := regexp2.Compile(expr, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", expr, err)
		}
		out = append(out, rx)
	}
	return out, nil
}

// MustPatterns is CompilePatterns for expressions known at compile time.
func MustPatterns(exprs ...string) []*regexp2.Regexp {
	out, err := CompilePatterns(exprs...)
	if err != nil {
		panic(err)
	}
	return out
}
