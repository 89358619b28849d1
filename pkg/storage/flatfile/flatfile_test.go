package flatfile_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"webprobe/pkg/domain"
	"webprobe/pkg/serrors"
	"webprobe/pkg/storage/flatfile"

	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	if len(b) == 0 {
		return nil
	}
	require.True(t, strings.HasSuffix(string(b), "\n"), "file must end with a newline")

	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

func TestNew_Paths(t *testing.T) {
	w := flatfile.New(flatfile.Options{Dir: "/out", Name: "subs"})
	require.Equal(t, "/out/codes_subs.csv", w.CodesPath())
	require.Equal(t, "/out/subs.txt", w.URLsPath())
	require.Equal(t, []string{"/out/codes_subs.csv", "/out/subs.txt"}, w.Paths())

	w = flatfile.New(flatfile.Options{})
	require.Equal(t, "codes_results.csv", w.CodesPath())
	require.Equal(t, "results.txt", w.URLsPath())
}

func TestWrite_FoundOnly(t *testing.T) {
	dir := t.TempDir()
	w := flatfile.New(flatfile.Options{Dir: dir, Name: "results"})

	rs := domain.ResultSet{
		{Domain: "a.test", Probe: domain.Found(200, "https://a.test")},
		{Domain: "b.test", Probe: domain.Absent()},
		{Domain: "c.test", Probe: domain.Found(301, "http://c.test")},
		{Domain: "d.test", Probe: domain.Found(403, "https://www.d.test")},
		{Domain: "", Probe: domain.Absent()},
	}
	require.NoError(t, w.Write(context.Background(), rs))

	require.Equal(t, []string{
		"200,https://a.test",
		"301,http://c.test",
		"403,https://www.d.test",
	}, readLines(t, w.CodesPath()))
	require.Equal(t, []string{
		"https://a.test",
		"http://c.test",
		"https://www.d.test",
	}, readLines(t, w.URLsPath()))
}

func TestWrite_Appends(t *testing.T) {
	dir := t.TempDir()
	w := flatfile.New(flatfile.Options{Dir: dir, Name: "run"})
	ctx := context.Background()

	require.NoError(t, w.Write(ctx, domain.ResultSet{{Domain: "a.test", Probe: domain.Found(200, "http://a.test")}}))
	require.NoError(t, w.Write(ctx, domain.ResultSet{{Domain: "b.test", Probe: domain.Found(302, "http://b.test")}}))

	require.Equal(t, []string{"200,http://a.test", "302,http://b.test"}, readLines(t, w.CodesPath()))
	require.Equal(t, []string{"http://a.test", "http://b.test"}, readLines(t, w.URLsPath()))
}

func TestWrite_EmptySetCreatesNothing(t *testing.T) {
	dir := t.TempDir()
	w := flatfile.New(flatfile.Options{Dir: dir})

	require.NoError(t, w.Write(context.Background(), domain.ResultSet{}))

	_, err := os.Stat(w.CodesPath())
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(w.URLsPath())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWrite_AllAbsentCreatesEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	w := flatfile.New(flatfile.Options{Dir: dir})

	require.NoError(t, w.Write(context.Background(), domain.ResultSet{{Domain: "a.test", Probe: domain.Absent()}}))

	require.Empty(t, readLines(t, w.CodesPath()))
	require.Empty(t, readLines(t, w.URLsPath()))
}

func TestWrite_OpenFailure(t *testing.T) {
	w := flatfile.New(flatfile.Options{Dir: filepath.Join(t.TempDir(), "missing", "dir")})

	err := w.Write(context.Background(), domain.ResultSet{{Domain: "a.test", Probe: domain.Found(200, "http://a.test")}})
	require.Error(t, err)
	require.ErrorIs(t, err, serrors.ErrOutput)
}
