// Package normalize turns URL-like strings into a canonical form that can
// be used as a deduplication or cache key.
//
// Parsing and serialization follow the WHATWG URL standard, so hosts are
// lowercased and IDNA encoded, default ports are dropped and dot segments
// are resolved before any of the stages below run.
package normalize

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
	whatwgurl "github.com/nlnwa/whatwg-url/url"
)

var parser = whatwgurl.NewParser()

type queryPolicy int

const (
	policyNone queryPolicy = iota
	policyRemove
	policyRemoveAll
	policyKeep
)

// Normalizer applies a validated set of Options. It is immutable and safe
// for concurrent use.
type Normalizer struct {
	opts          Options
	policy        queryPolicy
	queryPatterns []*regexp2.Regexp
	indexPatterns []*regexp2.Regexp
	stages        []stage
}

// New validates opts and resolves the query parameter policy once.
func New(opts Options) (*Normalizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	n := &Normalizer{
		opts:          opts,
		indexPatterns: opts.RemoveDirectoryIndex.resolve(),
		stages:        pipeline,
	}

	switch {
	case opts.KeepQueryParameters != nil:
		n.policy = policyKeep
		n.queryPatterns = opts.KeepQueryParameters
	case opts.RemoveQueryParameters.all:
		n.policy = policyRemoveAll
	case len(opts.RemoveQueryParameters.patterns) > 0:
		n.policy = policyRemove
		n.queryPatterns = opts.RemoveQueryParameters.patterns
	default:
		n.policy = policyNone
	}

	return n, nil
}

// Normalize runs every stage over input and returns the canonical string.
func (n *Normalizer) Normalize(input string) (string, error) {
	s := &state{raw: input}
	for _, st := range n.stages {
		if err := st.run(n, s); err != nil {
			return "", fmt.Errorf("%s: %w", st.name, err)
		}
	}
	return s.raw, nil
}

// Normalize is a convenience wrapper for one-off calls. Callers normalizing
// many URLs should build a Normalizer once with New.
func Normalize(input string, opts Options) (string, error) {
	n, err := New(opts)
	if err != nil {
		return "", err
	}
	return n.Normalize(input)
}

// Host returns the hostname of a URL produced by n.Normalize, or "" when
// it has none. It copes with output whose scheme was stripped or left
// protocol-relative.
func (n *Normalizer) Host(normalized string) string {
	switch {
	case strings.HasPrefix(normalized, "//"):
		normalized = n.opts.DefaultProtocol + ":" + normalized
	case !strings.Contains(normalized, "://"):
		normalized = n.opts.DefaultProtocol + "://" + normalized
	}
	u, err := parser.Parse(normalized)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
