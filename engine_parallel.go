package testscope

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jward/testscope/internal/javasrc"
	"github.com/jward/testscope/internal/store"
)

// workItem holds everything an extraction worker needs, and what it
// produced.
type workItem struct {
	path    string
	hash    string
	content []byte

	// existing is the stored record of a previously indexed version, and
	// oldState what resolution depended on in it.
	existing *store.File
	oldState fileState

	facts *javasrc.FileFacts
	err   error
}

// IndexFilesParallel indexes files using a three-phase pipeline:
//
//	Phase A (serial):   Read, hash check, capture the previous file state.
//	Phase B (parallel): Parse and extract on a bounded errgroup.
//	Phase C (serial):   Replace stored facts in SQLite, update the dirty flag.
//
// A file whose extraction fails is reported and skipped; the others are
// still committed.
func (e *Engine) IndexFilesParallel(ctx context.Context, paths []string) error {
	var errs []error

	// ---- Phase A: Serial file preparation ----
	var items []*workItem
	for _, path := range paths {
		item, skip, err := e.prepareFile(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		items = append(items, item)
	}

	if len(items) > 0 {
		// ---- Phase B: Parallel extraction ----
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(1, min(runtime.NumCPU(), len(items))))
		for _, item := range items {
			g.Go(func() error {
				// Per-file failures stay on the item; only cancellation
				// stops the group.
				item.err = e.extractFile(gctx, item)
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("parallel indexing: %w", err)
		}

		// ---- Phase C: Serial commit ----
		for _, item := range items {
			if item.err != nil {
				errs = append(errs, fmt.Errorf("extract %s: %w", item.path, item.err))
				continue
			}
			if err := e.commitFile(item); err != nil {
				errs = append(errs, fmt.Errorf("commit %s: %w", item.path, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// prepareFile does Phase A work for a single file. Returns (item, skip,
// error); skip=true means the file is unchanged or not a Java source.
func (e *Engine) prepareFile(_ context.Context, path string) (*workItem, bool, error) {
	if _, ok := javasrc.LanguageForFile(path); !ok {
		return nil, true, nil
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, false, fmt.Errorf("resolve path: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read file: %w", err)
	}
	hash := contentHash(content)

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return nil, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		return nil, true, nil // unchanged
	}

	item := &workItem{path: path, hash: hash, content: content, existing: existing}
	if existing != nil {
		item.oldState, err = e.captureState(existing)
		if err != nil {
			return nil, false, fmt.Errorf("capture old state: %w", err)
		}
	}
	return item, false, nil
}

// extractFile parses one file. Each call uses its own tree-sitter parser,
// so it is safe to run concurrently.
func (e *Engine) extractFile(ctx context.Context, item *workItem) error {
	facts, err := javasrc.Extract(ctx, item.content)
	if err != nil {
		return err
	}
	item.facts = facts
	item.content = nil
	return nil
}
