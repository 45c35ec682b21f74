// cmd/keeptree/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"keeptree/internal/catalog"
	"keeptree/internal/collection"
	"keeptree/internal/config"
	"keeptree/internal/diff"
	"keeptree/internal/logging"
	"keeptree/internal/watch"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	jsonOut bool
	server  string
	root    string
	verbose bool
	logger  *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: logging.Nop()}

	rootCmd := &cobra.Command{
		Use:   "keeptree",
		Short: "Keeptree maps Keep manifests onto file and directory trees",
		Long: `Keeptree parses Keep manifest text into the files and directories it
describes, and keeps a catalog of named, versioned manifests.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewCLILogger(a.verbose)
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			a.logger = logger
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&a.jsonOut, "json", false, "Print JSON instead of text")
	flags.StringVar(&a.server, "server", os.Getenv("KEEPTREE_SERVER"), "Use the catalog of a keeptree server at this URL")
	flags.StringVar(&a.root, "root", ".", "Directory holding the local catalog")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(
		a.parseCmd(),
		a.filesCmd(),
		a.dirsCmd(),
		a.treeCmd(),
		a.diffCmd(),
		a.initCmd(),
		a.importCmd(),
		a.replaceCmd(),
		a.listCmd(),
		a.showCmd(),
		a.catCmd(),
		a.rmCmd(),
		a.watchCmd(),
	)
	return rootCmd
}

func (a *app) parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a manifest and summarize it",
		Long:  `Parses FILE (or stdin when FILE is -) and prints its portable data hash and entry counts.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readManifest(cmd, args[0])
			if err != nil {
				return err
			}

			if a.server != "" {
				res, err := newRemote(a.server).Parse(text)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				printSummary(cmd.OutOrStdout(), res.PortableDataHash, res.Streams, res.Files, res.Directories)
				return nil
			}

			l, err := a.build(text)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), l)
			}
			printSummary(cmd.OutOrStdout(), l.PortableDataHash, len(l.Manifest.Streams), l.Files, l.Directories)
			return nil
		},
	}
}

func (a *app) filesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files FILE",
		Short: "List the files a manifest describes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.load(cmd, args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), nonNil(l.Files))
			}
			printFiles(cmd.OutOrStdout(), l.Files)
			return nil
		},
	}
}

func (a *app) dirsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dirs FILE",
		Short: "List the directories a manifest describes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.load(cmd, args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), nonNil(l.Directories))
			}
			for _, d := range l.Directories {
				fmt.Fprintln(cmd.OutOrStdout(), d.ID+"/")
			}
			return nil
		},
	}
}

func (a *app) treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree FILE",
		Short: "Print a manifest as a directory tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.load(cmd, args[0])
			if err != nil {
				return err
			}
			tree, err := l.Tree()
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), treeJSON(tree, ""))
			}
			if tree.Len() == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Empty manifest")
				return nil
			}
			return printTree(cmd.OutOrStdout(), tree)
		},
	}
}

func (a *app) diffCmd() *cobra.Command {
	var (
		contextLines int
		collectionID string
	)
	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Show how the entries of two manifests differ",
		Long: `Compares manifest OLD with NEW. With --collection, compares the stored
manifest of that collection with NEW.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if collectionID != "" {
				if len(args) != 1 {
					return fmt.Errorf("diff --collection takes one manifest")
				}
				return a.diffCollection(cmd, collectionID, args[0], contextLines)
			}
			if len(args) != 2 {
				return fmt.Errorf("diff takes two manifests")
			}

			older, err := a.load(cmd, args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			newer, err := a.load(cmd, args[1])
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}

			result := diff.Compare(older.Manifest, newer.Manifest)
			return a.printDiff(cmd, result, "a/"+args[0], "b/"+args[1], older, newer, contextLines)
		},
	}
	cmd.Flags().IntVarP(&contextLines, "context", "U", 3, "Lines of context")
	cmd.Flags().StringVarP(&collectionID, "collection", "c", "", "Compare against this stored collection")
	return cmd
}

// diffCollection compares the stored manifest of collection id with the
// manifest at path.
func (a *app) diffCollection(cmd *cobra.Command, id, path string, contextLines int) error {
	text, err := readManifest(cmd, path)
	if err != nil {
		return err
	}

	b, err := a.backend()
	if err != nil {
		return err
	}
	defer b.Close()

	result, err := b.Diff(id, text)
	if err != nil {
		return err
	}
	if a.jsonOut || result.Empty() {
		return a.printDiff(cmd, result, "", "", nil, nil, contextLines)
	}

	stored, err := b.ManifestText(id)
	if err != nil {
		return err
	}
	older, err := catalog.Build(stored, false)
	if err != nil {
		return err
	}
	newer, err := catalog.Build(text, false)
	if err != nil {
		return err
	}
	return a.printDiff(cmd, result, "a/"+id, "b/"+path, older, newer, contextLines)
}

func (a *app) printDiff(cmd *cobra.Command, result diff.Result, oldName, newName string, older, newer *catalog.Listing, contextLines int) error {
	if a.jsonOut {
		return writeJSON(cmd.OutOrStdout(), result)
	}

	out := cmd.OutOrStdout()
	if result.Empty() {
		fmt.Fprintln(out, "No differences")
		return nil
	}
	unified, err := diff.Unified(oldName, newName, older.Manifest, newer.Manifest, contextLines)
	if err != nil {
		return err
	}
	printColoredDiff(out, unified)
	printDiffSummary(out, result)
	return nil
}

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a local catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := catalog.Initialize(a.root); err != nil {
				return fmt.Errorf("initializing catalog: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Initialized empty catalog in", a.root)
			return nil
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import NAME FILE",
		Short: "Store a manifest as a named collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readManifest(cmd, args[1])
			if err != nil {
				return err
			}

			b, err := a.backend()
			if err != nil {
				return err
			}
			defer b.Close()

			c, err := b.Import(args[0], text)
			if err != nil {
				return fmt.Errorf("importing %s: %w", args[1], err)
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), c)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as %s (%s)\n",
				color.New(color.FgGreen).Sprint(c.Name), c.ID, c.PortableDataHash)
			return nil
		},
	}
}

func (a *app) replaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replace ID FILE",
		Short: "Store a new version of a collection's manifest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readManifest(cmd, args[1])
			if err != nil {
				return err
			}

			b, err := a.backend()
			if err != nil {
				return err
			}
			defer b.Close()

			c, err := b.Replace(args[0], text)
			if err != nil {
				return fmt.Errorf("replacing %s: %w", args[0], err)
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), c)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s to version %d (%s)\n",
				color.New(color.FgGreen).Sprint(c.Name), c.Version, c.PortableDataHash)
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	var pdh string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.backend()
			if err != nil {
				return err
			}
			defer b.Close()

			var all []*collection.Collection
			if pdh != "" {
				all, err = b.FindByPortableDataHash(pdh)
			} else {
				all, err = b.List()
			}
			if err != nil {
				return fmt.Errorf("listing collections: %w", err)
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), nonNil(all))
			}
			if len(all) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No collections")
				return nil
			}
			printCollections(cmd.OutOrStdout(), all)
			return nil
		},
	}
	cmd.Flags().StringVar(&pdh, "pdh", "", "Only collections with this portable data hash")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a collection and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.backend()
			if err != nil {
				return err
			}
			defer b.Close()

			c, err := b.Get(args[0])
			if err != nil {
				return err
			}
			files, err := b.Files(args[0])
			if err != nil {
				return err
			}
			dirs, err := b.Directories(args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), struct {
					Collection  any `json:"collection"`
					Files       any `json:"files"`
					Directories any `json:"directories"`
				}{c, nonNil(files), nonNil(dirs)})
			}
			printCollection(cmd.OutOrStdout(), c)
			printFiles(cmd.OutOrStdout(), files)
			return nil
		},
	}
}

func (a *app) catCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat ID",
		Short: "Print the stored manifest text of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.backend()
			if err != nil {
				return err
			}
			defer b.Close()

			text, err := b.ManifestText(args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		},
	}
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.backend()
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted", args[0])
			return nil
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch DIR",
		Short: "Keep the local catalog in sync with *.manifest files under DIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.server != "" {
				return fmt.Errorf("watch only works on the local catalog")
			}

			cat, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer cat.Close()

			w, err := watch.New(args[0], cat, a.logger.Logger)
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintln(cmd.OutOrStdout(), "Watching", w.Root, "(Ctrl-C to stop)")
			return w.Run(ctx)
		},
	}
}

// build parses text with the configured strictness.
func (a *app) build(text string) (*catalog.Listing, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return catalog.Build(text, cfg.Catalog.Strict)
}

func (a *app) load(cmd *cobra.Command, path string) (*catalog.Listing, error) {
	text, err := readManifest(cmd, path)
	if err != nil {
		return nil, err
	}
	return a.build(text)
}

func (a *app) openCatalog() (*catalog.Catalog, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cat, err := catalog.Open(a.root, cfg.CatalogOptions(), a.logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	return cat, nil
}

func (a *app) backend() (backend, error) {
	if a.server != "" {
		a.logger.Debug("using server catalog", zap.String("server", a.server))
		return newRemote(a.server), nil
	}
	cat, err := a.openCatalog()
	if err != nil {
		return nil, err
	}
	return localBackend{cat}, nil
}

// readManifest reads path, or stdin when path is "-".
func readManifest(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading manifest: %w", err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
