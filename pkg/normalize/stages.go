package normalize

import (
	"fmt"
	"sort"
	"strings"

	whatwgurl "github.com/nlnwa/whatwg-url/url"
)

// state is threaded through the stages of a single Normalize call.
type state struct {
	raw string
	// prepended is raw after the default protocol was added, before parsing.
	prepended        string
	url              *whatwgurl.Url
	protocolRelative bool
	relativePath     bool
}

type stage struct {
	name string
	run  func(n *Normalizer, s *state) error
}

var pipeline = []stage{
	{"prepare", prepare},
	{"parse", parse},
	{"force scheme", forceScheme},
	{"strip authentication", stripAuthentication},
	{"fragment", fragment},
	{"duplicate slashes", duplicateSlashes},
	{"decode path", decodePath},
	{"directory index", directoryIndex},
	{"host", host},
	{"query filter", queryFilter},
	{"sort query", sortQuery},
	{"trailing slash", trailingSlash},
	{"port", port},
	{"serialize", serialize},
	{"protocol", protocol},
}

func prepare(n *Normalizer, s *state) error {
	s.raw = strings.TrimSpace(s.raw)
	s.protocolRelative = strings.HasPrefix(s.raw, "//")

	if !s.protocolRelative {
		ok, err := match(rxRelativePath, s.raw)
		if err != nil {
			return err
		}
		s.relativePath = ok
	}

	if !s.relativePath {
		out, err := replaceFirst(rxMissingProtocol, s.raw, n.opts.DefaultProtocol+"://")
		if err != nil {
			return err
		}
		s.raw = out
	}
	s.prepended = s.raw
	return nil
}

func parse(_ *Normalizer, s *state) error {
	u, err := parser.Parse(s.raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	s.url = u
	return nil
}

func forceScheme(n *Normalizer, s *state) error {
	switch {
	case n.opts.ForceHTTP && s.url.Scheme() == "https":
		return setScheme(s.url, "http")
	case n.opts.ForceHTTPS && s.url.Scheme() == "http":
		return setScheme(s.url, "https")
	}
	return nil
}

// setScheme switches the scheme of u. The parser silently ignores changes
// it refuses, such as special to non-special; those surface as
// ErrSchemeRewrite. The http and https swaps done here are always accepted.
func setScheme(u *whatwgurl.Url, scheme string) error {
	u.SetProtocol(scheme)
	if u.Scheme() != scheme {
		return fmt.Errorf("%w: set scheme %q on %s", ErrSchemeRewrite, scheme, u.Href(false))
	}
	return nil
}

func stripAuthentication(n *Normalizer, s *state) error {
	if !n.opts.StripAuthentication {
		return nil
	}
	s.url.SetUsername("")
	s.url.SetPassword("")
	return nil
}

func fragment(n *Normalizer, s *state) error {
	if n.opts.StripHash {
		s.url.SetHash("")
		return nil
	}
	if !n.opts.StripTextFragment {
		return nil
	}

	// An empty fragment ("#") is indistinguishable from a missing one here
	// and both end up cleared.
	out, err := replaceFirst(rxTextFragment, s.url.Fragment(), "")
	if err != nil {
		return err
	}
	if out == "" {
		s.url.SetHash("")
		return nil
	}
	s.url.SetHash("#" + out)
	return nil
}

// duplicateSlashes collapses runs of "/" in the path, leaving embedded
// "scheme://" tokens such as "/https://other.host" intact.
func duplicateSlashes(_ *Normalizer, s *state) error {
	path := s.url.Pathname()
	if path == "" || s.url.OpaquePath() {
		return nil
	}

	runes := []rune(path)
	var sb strings.Builder
	last := 0

	m, err := rxEmbeddedScheme.FindStringMatch(path)
	for ; m != nil && err == nil; m, err = rxEmbeddedScheme.FindNextMatch(m) {
		gap, rerr := replaceAll(rxDuplicateSlash, string(runes[last:m.Index]), "/")
		if rerr != nil {
			return rerr
		}
		sb.WriteString(gap)
		sb.WriteString(m.String())
		last = m.Index + m.Length
	}
	if err != nil {
		return fmt.Errorf("%w: match %s: %w", ErrParse, rxEmbeddedScheme.String(), err)
	}

	rest, err := replaceAll(rxDuplicateSlash, string(runes[last:]), "/")
	if err != nil {
		return err
	}
	sb.WriteString(rest)

	if out := sb.String(); out != path {
		s.url.SetPathname(out)
	}
	return nil
}

func decodePath(_ *Normalizer, s *state) error {
	path := s.url.Pathname()
	if path == "" || s.url.OpaquePath() {
		return nil
	}
	if decoded := decodeBestEffort(path); decoded != path {
		s.url.SetPathname(decoded)
	}
	return nil
}

func directoryIndex(n *Normalizer, s *state) error {
	if len(n.indexPatterns) == 0 || s.url.OpaquePath() {
		return nil
	}

	segments := strings.Split(strings.TrimPrefix(s.url.Pathname(), "/"), "/")
	ok, err := matchAny(n.indexPatterns, segments[len(segments)-1])
	if err != nil || !ok {
		return err
	}

	rest := segments[:len(segments)-1]
	if len(rest) == 0 {
		s.url.SetPathname("/")
		return nil
	}
	s.url.SetPathname("/" + strings.Join(rest, "/") + "/")
	return nil
}

func host(n *Normalizer, s *state) error {
	hostname := s.url.Hostname()
	if hostname == "" {
		return nil
	}

	trimmed, err := replaceFirst(rxTrailingDot, hostname, "")
	if err != nil {
		return err
	}
	if trimmed != hostname {
		s.url.SetHostname(trimmed)
		hostname = s.url.Hostname()
	}

	if !n.opts.StripWWW {
		return nil
	}
	ok, err := match(rxStrippableWWW, hostname)
	if err != nil || !ok {
		return err
	}
	stripped, err := replaceFirst(rxLeadingWWW, hostname, "")
	if err != nil {
		return err
	}
	s.url.SetHostname(stripped)
	return nil
}

func queryFilter(n *Normalizer, s *state) error {
	switch n.policy {
	case policyRemoveAll:
		s.url.SetSearch("")
	case policyRemove, policyKeep:
		keep := n.policy == policyKeep
		var kept []queryPair
		for _, p := range parseQuery(s.url.Query()) {
			ok, err := matchAny(n.queryPatterns, p.key)
			if err != nil {
				return err
			}
			if ok == keep {
				kept = append(kept, p)
			}
		}
		setQuery(s.url, encodeQuery(kept))
	}

	// "?" with nothing after it is dropped whatever the policy.
	if s.url.Query() == "" {
		s.url.SetSearch("")
	}
	return nil
}

func sortQuery(n *Normalizer, s *state) error {
	if !n.opts.SortQueryParameters {
		return nil
	}
	pairs := parseQuery(s.url.Query())
	if len(pairs) == 0 {
		return nil
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
	setQuery(s.url, decodeBestEffort(encodeQuery(pairs)))
	return nil
}

func setQuery(u *whatwgurl.Url, query string) {
	if query == "" {
		u.SetSearch("")
		return
	}
	u.SetSearch("?" + query)
}

func trailingSlash(n *Normalizer, s *state) error {
	if !n.opts.RemoveTrailingSlash || s.url.OpaquePath() {
		return nil
	}
	if path := s.url.Pathname(); strings.HasSuffix(path, "/") {
		s.url.SetPathname(strings.TrimSuffix(path, "/"))
	}
	return nil
}

// port drops an explicit port. Default ports never survive parsing.
func port(n *Normalizer, s *state) error {
	if n.opts.RemoveExplicitPort && s.url.Port() != "" {
		s.url.SetPort("")
	}
	return nil
}

// serialize renders the URL and applies the slash rules that only make
// sense on the final string. They never touch a URL that ends in a query
// or fragment.
func serialize(n *Normalizer, s *state) error {
	u := s.url
	s.raw = u.Href(false)

	if u.Query() != "" || u.Fragment() != "" {
		return nil
	}

	path := u.Pathname()
	if !n.opts.RemoveSingleSlash && path == "/" && !strings.HasSuffix(s.prepended, "/") {
		s.raw = strings.TrimSuffix(s.raw, "/")
	}
	if (n.opts.RemoveTrailingSlash || path == "/") && n.opts.RemoveSingleSlash {
		s.raw = strings.TrimSuffix(s.raw, "/")
	}
	return nil
}

func protocol(n *Normalizer, s *state) error {
	var err error
	if s.protocolRelative && !n.opts.NormalizeProtocol {
		if s.raw, err = replaceFirst(rxLeadingHTTP, s.raw, "//"); err != nil {
			return err
		}
	}
	if n.opts.StripProtocol {
		if s.raw, err = replaceFirst(rxLeadingProtocol, s.raw, ""); err != nil {
			return err
		}
	}
	return nil
}
