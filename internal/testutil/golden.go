package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// UpdateGoldenEnv names the environment variable that rewrites golden files
// instead of comparing against them.
const UpdateGoldenEnv = "TODOSYNC_UPDATE_GOLDEN"

// GoldenString compares rendered output against testdata/<name>.golden and
// reports the first differing line. Line endings are normalized so golden
// files survive a CRLF checkout.
func GoldenString(t *testing.T, name, got string) {
	t.Helper()

	path := filepath.Join("testdata", name+".golden")
	if os.Getenv(UpdateGoldenEnv) != "" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755), "create testdata")
		require.NoError(t, os.WriteFile(path, []byte(got), 0644), "update %s", path)
		return
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err, "set %s=1 to create %s\ngot:\n%s", UpdateGoldenEnv, path, got)
	want := strings.ReplaceAll(string(data), "\r\n", "\n")
	if got == want {
		return
	}

	wantLines := strings.Split(want, "\n")
	gotLines := strings.Split(got, "\n")
	for i := 0; i < len(wantLines) || i < len(gotLines); i++ {
		var w, g string
		if i < len(wantLines) {
			w = wantLines[i]
		}
		if i < len(gotLines) {
			g = gotLines[i]
		}
		if w != g {
			require.Failf(t, "golden mismatch", "%s: line %d differs\nwant: %q\ngot:  %q\nfull output:\n%s", path, i+1, w, g, got)
		}
	}
}
