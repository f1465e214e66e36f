package normalize

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// Compiled once, read-only afterwards.
var (
	rxUTM                   = regexp2.MustCompile(`^utm_\w+`, regexp2.None)
	rxDefaultDirectoryIndex = regexp2.MustCompile(`^index\.[a-z]+$`, regexp2.None)

	rxRelativePath    = regexp2.MustCompile(`^\.*/`, regexp2.None)
	rxMissingProtocol = regexp2.MustCompile(`^(?!(?:\w+:)?//)|^//`, regexp2.None)
	rxTextFragment    = regexp2.MustCompile(`#?:~:text.*?$`, regexp2.None)
	rxEmbeddedScheme  = regexp2.MustCompile(`\b[a-z][a-z\d+\-.]{1,50}://`, regexp2.None)
	rxDuplicateSlash  = regexp2.MustCompile(`/{2,}`, regexp2.None)
	rxTrailingDot     = regexp2.MustCompile(`\.$`, regexp2.None)

	// Each label is 1-63 characters, the TLD 2-63. Single character TLDs
	// are technically allowed but none exist.
	rxStrippableWWW = regexp2.MustCompile(`^www\.(?!www\.)[a-z\-\d]{1,63}\.[a-z.\-\d]{2,63}$`, regexp2.None)
	rxLeadingWWW    = regexp2.MustCompile(`^www\.`, regexp2.None)

	rxLeadingHTTP     = regexp2.MustCompile(`^http://`, regexp2.None)
	rxLeadingProtocol = regexp2.MustCompile(`^(?:https?:)?//`, regexp2.None)
)

func match(rx *regexp2.Regexp, s string) (bool, error) {
	ok, err := rx.MatchString(s)
	if err != nil {
		return false, fmt.Errorf("%w: match %s: %w", ErrParse, rx.String(), err)
	}
	return ok, nil
}

func matchAny(patterns []*regexp2.Regexp, s string) (bool, error) {
	for _, rx := range patterns {
		ok, err := match(rx, s)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// replaceFirst substitutes repl literally for the first match of rx.
func replaceFirst(rx *regexp2.Regexp, s, repl string) (string, error) {
	out, err := rx.ReplaceFunc(s, func(regexp2.Match) string { return repl }, -1, 1)
	if err != nil {
		return "", fmt.Errorf("%w: replace %s: %w", ErrParse, rx.String(), err)
	}
	return out, nil
}

func replaceAll(rx *regexp2.Regexp, s, repl string) (string, error) {
	out, err := rx.ReplaceFunc(s, func(regexp2.Match) string { return repl }, -1, -1)
	if err != nil {
		return "", fmt.Errorf("%w: replace %s: %w", ErrParse, rx.String(), err)
	}
	return out, nil
}
