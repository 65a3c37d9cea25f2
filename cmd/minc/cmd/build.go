package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/minlang/cache"
	"github.com/chazu/minlang/compiler"
	"github.com/chazu/minlang/compiler/hash"
	"github.com/chazu/minlang/manifest"
)

var buildLog = commonlog.GetLogger("minc.build")

var (
	buildJobs    int
	buildNoCache bool
)

var buildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Check every source file of a project",
	Long: `Checks every source file listed by the project's minlang.toml.

Files whose contents have not changed since the last run are answered from
the check cache. Without a minlang.toml the directory is treated as a project
with default settings. The command fails if any file has a lexical or syntax
error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().IntVarP(&buildJobs, "jobs", "j", runtime.NumCPU(), "number of files checked in parallel")
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "ignore and do not update the check cache")
	rootCmd.AddCommand(buildCmd)
}

// checked is the outcome for one file.
type checked struct {
	entry  *cache.Entry
	cached bool
}

func runBuild(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	m, err := loadProject(dir)
	if err != nil {
		return err
	}

	files, err := m.SourceFiles()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no %s files under %v", m.Source.Extension, m.Source.Dirs)
	}

	var store *cache.Store
	if m.Cache.Enabled && !buildNoCache {
		store, err = cache.Open(m.CachePath())
		if err != nil {
			return fmt.Errorf("opening check cache: %w", err)
		}
		defer store.Close()
	}

	results, err := checkFiles(cmd.Context(), files, parserDepth(m), store, buildJobs)
	if err != nil {
		return err
	}
	return report(cmd.OutOrStdout(), cmd.ErrOrStderr(), m, results)
}

// loadProject loads dir's manifest, falling back to defaults when there is
// none.
func loadProject(dir string) (*manifest.Manifest, error) {
	if _, err := os.Stat(filepath.Join(dir, manifest.FileName)); err == nil {
		return manifest.Load(dir)
	}
	buildLog.Infof("no %s in %s, using defaults", manifest.FileName, dir)
	return manifest.Default(dir)
}

// checkFiles checks files with at most jobs running at once. Results are in
// file order. Diagnostics are recorded in the results; only I/O and cache
// failures are returned as errors.
func checkFiles(ctx context.Context, files []string, depth int, store *cache.Store, jobs int) ([]checked, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	runID := cache.NewRunID()
	results := make([]checked, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			r, err := checkFile(ctx, path, depth, store, runID)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func checkFile(ctx context.Context, path string, depth int, store *cache.Store, runID string) (checked, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return checked{}, fmt.Errorf("cannot read source: %w", err)
	}
	sourceHash := hash.Hex(hash.HashSource(src))
	if depth <= 0 {
		depth = compiler.DefaultMaxDepth
	}

	if store != nil {
		e, err := store.Lookup(ctx, path, sourceHash, depth)
		if err == nil {
			buildLog.Debugf("%s: unchanged since run %s", path, e.RunID)
			return checked{entry: e, cached: true}, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			return checked{}, err
		}
	}

	e := &cache.Entry{Path: path, SourceHash: sourceHash, MaxDepth: depth, RunID: runID}
	u, err := compileSource(path, src, depth)
	e.Tokens = len(u.tokens)
	if err != nil {
		e.Phase = phaseOf(err)
		if e.Phase == "" {
			return checked{}, err
		}
		e.Message = err.Error()
	} else {
		e.Decls = len(u.prog.Decls)
		e.ASTHash = hash.Hex(hash.HashProgram(u.prog))
	}

	if store != nil {
		if err := store.Record(ctx, e); err != nil {
			return checked{}, err
		}
	}
	return checked{entry: e}, nil
}

// report prints failures to errw and a summary to out. It returns an error
// when any file failed.
func report(out, errw io.Writer, m *manifest.Manifest, results []checked) error {
	failed, cached := 0, 0
	for _, r := range results {
		if r.cached {
			cached++
		}
		if r.entry.OK() {
			continue
		}
		failed++
		label := "syntax error"
		if r.entry.Phase == "lexer" {
			label = "lexical error"
		}
		fmt.Fprintf(errw, "%s: %s\n", label, r.entry.Message)
	}

	fmt.Fprintf(out, "%s: checked %d files (%d cached), %d failed\n", m.Project.Name, len(results), cached, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}
