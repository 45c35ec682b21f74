package diff

import (
	"testing"

	"keeptree/internal/manifest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, text string) manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse(text)
	require.NoError(t, err)
	return m
}

const (
	before = ". acbd18db4cc2f85cedef654fccc4a4d8+30 0:10:keep 10:20:grow\n" +
		"./logs d41d8cd98f00b204e9800998ecf8427e+0 0:0:old.log\n"
	after = ". acbd18db4cc2f85cedef654fccc4a4d8+40 0:10:keep 10:30:grow\n" +
		"./results d41d8cd98f00b204e9800998ecf8427e+0 0:0:out.txt\n"
)

func TestCompare(t *testing.T) {
	r := Compare(mustParse(t, before), mustParse(t, after))

	require.Len(t, r.Added, 1)
	assert.Equal(t, "/results/out.txt", r.Added[0].ID)
	require.Len(t, r.Removed, 1)
	assert.Equal(t, "/logs/old.log", r.Removed[0].ID)
	assert.Equal(t, []Resize{{ID: "/grow", OldSize: 20, NewSize: 30}}, r.Resized)

	require.Len(t, r.AddedDirs, 1)
	assert.Equal(t, "/results", r.AddedDirs[0].ID)
	require.Len(t, r.RemovedDirs, 1)
	assert.Equal(t, "/logs", r.RemovedDirs[0].ID)

	assert.Equal(t, 2, r.Stats.Additions)
	assert.Equal(t, 2, r.Stats.Deletions)
	assert.Equal(t, 5, r.Stats.Changes)
	assert.False(t, r.Empty())
}

func TestCompare_Identical(t *testing.T) {
	m := mustParse(t, before)
	r := Compare(m, m)
	assert.True(t, r.Empty())
	assert.Empty(t, r.Added)
	assert.Empty(t, r.Removed)
	assert.Empty(t, r.Resized)
}

func TestListing(t *testing.T) {
	got := Listing(mustParse(t, before))
	assert.Equal(t, "/grow\t20\n/keep\t10\n/logs/\n/logs/old.log\t0\n", got)
}

func TestUnified(t *testing.T) {
	out, err := Unified("a.manifest", "b.manifest", mustParse(t, before), mustParse(t, after), 0)
	require.NoError(t, err)

	assert.Contains(t, out, "--- a.manifest")
	assert.Contains(t, out, "+++ b.manifest")
	assert.Contains(t, out, "-/grow\t20")
	assert.Contains(t, out, "+/grow\t30")
	assert.Contains(t, out, "-/logs/\n")
	assert.Contains(t, out, "+/results/out.txt\t0")
	assert.Contains(t, out, " /keep\t10")
}

func TestUnified_Identical(t *testing.T) {
	m := mustParse(t, after)
	out, err := Unified("a", "b", m, m, 3)
	require.NoError(t, err)
	assert.Empty(t, out)
}
