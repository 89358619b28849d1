// Package flatfile writes probe results into two plain text files:
// codes_{name}.csv with "status,url" lines and {name}.txt with bare URLs.
package flatfile

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"webprobe/pkg/domain"
	"webprobe/pkg/logger"
	"webprobe/pkg/serrors"
	"webprobe/pkg/storage"

	"go.uber.org/zap"
)

// DefaultName is the base name used when Options.Name is empty.
const DefaultName = "results"

const fileMode = 0o644

// Options configure a Writer.
type Options struct {
	// Dir is the directory the files are created in. Empty means the working directory.
	Dir string
	// Name is the base name of both files.
	Name string
}

// Writer appends Found results to the codes and URL files.
type Writer struct {
	codesPath string
	urlsPath  string
}

var _ storage.ResultWriter = (*Writer)(nil)

// New creates a Writer. Files are only touched by Write.
func New(opts Options) *Writer {
	name := opts.Name
	if name == "" {
		name = DefaultName
	}

	return &Writer{
		codesPath: filepath.Join(opts.Dir, "codes_"+name+".csv"),
		urlsPath:  filepath.Join(opts.Dir, name+".txt"),
	}
}

// CodesPath is the path of the "status,url" file.
func (w *Writer) CodesPath() string { return w.codesPath }

// URLsPath is the path of the bare URL file.
func (w *Writer) URLsPath() string { return w.urlsPath }

// Paths returns both file paths.
func (w *Writer) Paths() []string { return []string{w.codesPath, w.urlsPath} }

// Write appends one line per Found result to each file, creating the files
// when needed. An empty ResultSet leaves the file system untouched, while a
// set holding only Absent entries still creates both files. Either both files
// are opened or nothing is written.
func (w *Writer) Write(ctx context.Context, rs domain.ResultSet) error {
	if len(rs) == 0 {
		return nil
	}

	codes, err := openAppend(w.codesPath)
	if err != nil {
		return err
	}
	defer closeFile(ctx, codes)

	urls, err := openAppend(w.urlsPath)
	if err != nil {
		return err
	}
	defer closeFile(ctx, urls)

	cw, uw := bufio.NewWriter(codes), bufio.NewWriter(urls)
	found := 0
	for _, r := range rs {
		if !r.Probe.IsFound() {
			continue
		}
		found++

		line := r.Probe.URL() + "\n"
		if _, err := cw.WriteString(strconv.Itoa(r.Probe.StatusCode()) + "," + line); err != nil {
			return serrors.Wrap(serrors.ErrOutput, err, "could not write %s", w.codesPath)
		}
		if _, err := uw.WriteString(line); err != nil {
			return serrors.Wrap(serrors.ErrOutput, err, "could not write %s", w.urlsPath)
		}
	}

	if err := cw.Flush(); err != nil {
		return serrors.Wrap(serrors.ErrOutput, err, "could not flush %s", w.codesPath)
	}
	if err := uw.Flush(); err != nil {
		return serrors.Wrap(serrors.ErrOutput, err, "could not flush %s", w.urlsPath)
	}

	logger.Debug(ctx, "results written", zap.Int("found", found), zap.Int("total", len(rs)))

	return nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileMode)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrOutput, err, "could not open %s", path)
	}

	return f, nil
}

func closeFile(ctx context.Context, f *os.File) {
	if err := f.Close(); err != nil {
		logger.Warn(ctx, "could not close result file", zap.String("path", f.Name()), zap.Error(err))
	}
}
