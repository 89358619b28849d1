// Package input reads the candidate domain list.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"webprobe/pkg/domain"
	"webprobe/pkg/serrors"
)

// maxLineSize caps a single input line; enumeration output never comes close.
const maxLineSize = 1 << 20

// ReadDomains reads one domain per line from the file at path.
// Errors carry serrors.ErrInvalidInput.
func ReadDomains(path string) ([]domain.Domain, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrInvalidInput, err, "could not open domain list")
	}
	defer func() {
		_ = f.Close()
	}()

	domains, err := Parse(f)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrInvalidInput, err, "could not read domain list %s", path)
	}

	return domains, nil
}

// Parse splits r into domains, one per line, with surrounding whitespace
// removed. Empty lines are kept: they fail every probe and end up Absent.
func Parse(r io.Reader) ([]domain.Domain, error) {
	var domains []domain.Domain

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		domains = append(domains, domain.Domain(strings.TrimSpace(scanner.Text())))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not scan lines: %w", err)
	}

	return domains, nil
}
