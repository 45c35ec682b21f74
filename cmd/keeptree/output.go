package main

import (
	"fmt"
	"io"
	"strings"

	"keeptree/internal/collection"
	"keeptree/internal/diff"
	"keeptree/internal/manifest"
	"keeptree/shared/utils"

	"github.com/fatih/color"
)

func printSummary(w io.Writer, pdh string, streams int, files []manifest.FileEntry, dirs []manifest.DirectoryEntry) {
	total := manifest.TotalSize(files)
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(w, "%s %s\n", bold("Portable data hash:"), pdh)
	fmt.Fprintf(w, "  streams:     %d\n", streams)
	fmt.Fprintf(w, "  files:       %d\n", len(files))
	fmt.Fprintf(w, "  directories: %d\n", len(dirs))
	fmt.Fprintf(w, "  size:        %s\n", utils.HumanSize(total))
}

func printFiles(w io.Writer, files []manifest.FileEntry) {
	for _, f := range files {
		fmt.Fprintf(w, "%12d  %s\n", f.Size, f.ID)
	}
}

func printCollections(w io.Writer, all []*collection.Collection) {
	green := color.New(color.FgGreen).SprintFunc()
	for _, c := range all {
		fmt.Fprintf(w, "%s  %-24s v%-3d %6d files  %s\n",
			utils.ShortID(c.ID), green(c.Name), c.Version, c.Stats.Files, c.PortableDataHash)
	}
}

func printCollection(w io.Writer, c *collection.Collection) {
	fmt.Fprintf(w, "%s %s\n", color.New(color.FgGreen, color.Bold).Sprint(c.Name), c.ID)
	fmt.Fprintf(w, "  portable data hash: %s\n", c.PortableDataHash)
	if c.Source != "" {
		fmt.Fprintf(w, "  source:             %s\n", c.Source)
	}
	fmt.Fprintf(w, "  version:            %d (updated %s)\n", c.Version, c.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  entries:            %d files, %d directories, %s\n",
		c.Stats.Files, c.Stats.Directories, utils.HumanSize(c.Stats.Size))
}

func printTree(w io.Writer, tree *manifest.Tree) error {
	blue := color.New(color.FgBlue, color.Bold).SprintFunc()
	return tree.Walk(func(n *manifest.Node, depth int) error {
		indent := strings.Repeat("  ", depth)
		if n.Type == manifest.EntryDirectory {
			fmt.Fprintf(w, "%s%s/\n", indent, blue(n.Name))
			return nil
		}
		fmt.Fprintf(w, "%s%s (%s)\n", indent, n.Name, utils.HumanSize(n.Size))
		return nil
	})
}

type treeNode struct {
	Name     string             `json:"name"`
	ID       string             `json:"id"`
	Type     manifest.EntryType `json:"type"`
	Size     int64              `json:"size"`
	Children []treeNode         `json:"children,omitempty"`
}

func treeJSON(tree *manifest.Tree, id string) []treeNode {
	children := tree.Children(id)
	out := make([]treeNode, 0, len(children))
	for _, n := range children {
		node := treeNode{Name: n.Name, ID: n.ID, Type: n.Type, Size: n.Size}
		if n.Type == manifest.EntryDirectory {
			node.Children = treeJSON(tree, n.ID)
		}
		out = append(out, node)
	}
	return out
}

func printColoredDiff(w io.Writer, unified string) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	header := color.New(color.FgCyan)

	for _, line := range strings.Split(strings.TrimSuffix(unified, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			color.New(color.Bold).Fprintln(w, line)
		case strings.HasPrefix(line, "@@"):
			header.Fprintln(w, line)
		case strings.HasPrefix(line, "+"):
			added.Fprintln(w, line)
		case strings.HasPrefix(line, "-"):
			removed.Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
}

func printDiffSummary(w io.Writer, r diff.Result) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "\n%s, %s, %s\n",
		green(fmt.Sprintf("%d added", r.Stats.Additions)),
		red(fmt.Sprintf("%d removed", r.Stats.Deletions)),
		yellow(fmt.Sprintf("%d resized", len(r.Resized))),
	)
}
