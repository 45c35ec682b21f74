package manifest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T, text string) *Tree {
	t.Helper()
	m, err := Parse(text)
	require.NoError(t, err)
	tree, err := BuildTree(MapToFiles(m), MapToDirectories(m))
	require.NoError(t, err)
	return tree
}

func TestBuildTree(t *testing.T) {
	tree := buildTree(t, twoStreams)

	assert.Equal(t, 5, tree.Len())

	var names []string
	for _, n := range tree.Children("") {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"c", "a", "b", "output.txt"}, names)

	c, ok := tree.Get("/c")
	require.True(t, ok)
	assert.Equal(t, EntryDirectory, c.Type)

	root, ok := tree.Get("")
	require.True(t, ok)
	assert.Equal(t, int64(33), root.Size)
}

func TestBuildTree_SynthesizesImpliedDirectories(t *testing.T) {
	tree := buildTree(t, ". acbd18db4cc2f85cedef654fccc4a4d8+3 0:3:c/d\n")

	c, ok := tree.Get("/c")
	require.True(t, ok)
	assert.Equal(t, EntryDirectory, c.Type)
	assert.Equal(t, "", c.ParentID)
	assert.Equal(t, int64(3), c.Size)

	children := tree.Children("/c")
	require.Len(t, children, 1)
	assert.Equal(t, "/c/d", children[0].ID)
}

func TestBuildTree_Conflict(t *testing.T) {
	m, err := Parse(". d41d8cd98f00b204e9800998ecf8427e+0 0:0:c\n./c d41d8cd98f00b204e9800998ecf8427e+0 0:0:d\n")
	require.NoError(t, err)

	_, err = BuildTree(MapToFiles(m), MapToDirectories(m))
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "/c", conflict.ID)
}

func TestTree_Walk(t *testing.T) {
	tree := buildTree(t, ". d41d8cd98f00b204e9800998ecf8427e+0 0:0:z\n./a/b d41d8cd98f00b204e9800998ecf8427e+0 0:0:f\n")

	type visit struct {
		id    string
		depth int
	}
	var got []visit
	err := tree.Walk(func(n *Node, depth int) error {
		got = append(got, visit{n.ID, depth})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []visit{
		{"/a", 0},
		{"/a/b", 1},
		{"/a/b/f", 2},
		{"/z", 0},
	}, got)

	stop := errors.New("stop")
	count := 0
	err = tree.Walk(func(n *Node, depth int) error {
		count++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, count)
}
