package dedup

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	ErrNoURLs = errors.New("no urls loaded")
)

// LoadLines adds one URL per line to s, skipping blank lines and lines
// starting with "#". It returns how many new canonical URLs were added.
func LoadLines(r io.Reader, s *Set) (int, error) {
	added := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		_, isNew, err := s.Add(line)
		if err != nil {
			slog.Error("couldn't normalize url", slog.String("url", line), slog.Any("err", err))
			continue
		}
		if isNew {
			added++
		}
	}

	if err := scanner.Err(); err != nil {
		return added, err
	}

	if s.Len() == 0 {
		return 0, ErrNoURLs
	}

	return added, nil
}

func LoadFile(path string, s *Set) (int, error) {
	slog.Info("loading urls", "path", path)
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	added, err := LoadLines(file, s)
	if err != nil {
		return added, err
	}

	slog.Info("loaded urls", "count", added, "unique", s.Len())
	return added, nil
}
