package input_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"webprobe/internal/input"
	"webprobe/pkg/domain"
	"webprobe/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []domain.Domain
	}{
		{
			name: "one per line",
			in:   "example.com\nexample.org\n",
			want: []domain.Domain{"example.com", "example.org"},
		},
		{
			name: "trailing whitespace and CRLF stripped",
			in:   "example.com  \r\nexample.org\t\n",
			want: []domain.Domain{"example.com", "example.org"},
		},
		{
			name: "no trailing newline",
			in:   "example.com",
			want: []domain.Domain{"example.com"},
		},
		{
			name: "empty lines are kept",
			in:   "a.test\n\nb.test\n",
			want: []domain.Domain{"a.test", "", "b.test"},
		},
		{
			name: "empty input",
			in:   "",
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := input.Parse(strings.NewReader(tc.in))
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestReadDomains(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domains.txt")
	require.NoError(t, os.WriteFile(path, []byte("sub1.example.com\nsub2.example.com\n"), 0o600))

	got, err := input.ReadDomains(path)
	require.NoError(t, err)
	require.Equal(t, []domain.Domain{"sub1.example.com", "sub2.example.com"}, got)
}

func TestReadDomains_Missing(t *testing.T) {
	_, err := input.ReadDomains(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	require.ErrorIs(t, err, serrors.ErrInvalidInput)
	require.ErrorIs(t, err, os.ErrNotExist)
}
