package index

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kev0960/crep/bitset"
	"github.com/kev0960/crep/difftracker"
	"github.com/kev0960/crep/document"
	"github.com/kev0960/crep/internal/trace"
	"github.com/kev0960/crep/plumbing"
	"github.com/kev0960/crep/repository"
	"github.com/kev0960/crep/tokenize"
)

// fileWorkingState is the indexer's scratch bookkeeping for one file
// across the commit walk: its diff tracker and the last blob content seen
// (used to tokenize lines a later commit deletes).
type fileWorkingState struct {
	tracker     *difftracker.Tracker
	lastContent []byte
}

// Build runs the history indexer described by spec §4.6 against accessor,
// starting from tip, and returns the resulting immutable GitIndex together
// with per-file non-fatal condition counters.
func Build(ctx context.Context, accessor repository.Accessor, tip string, mode tokenize.Mode, utf8Permissive bool) (*GitIndex, *IndexStats, error) {
	metas, err := accessor.Commits(ctx, tip)
	if err != nil {
		return nil, nil, fmt.Errorf("index: list commits: %w", err)
	}

	gi := newGitIndex(mode, utf8Permissive)
	stats := &IndexStats{}

	idToOrdinal := make(map[plumbing.CommitID]plumbing.CommitOrdinal, len(metas))
	states := make(map[plumbing.FileID]*fileWorkingState)
	var stateMu sync.Mutex

	for _, m := range metas {
		ord := gi.Ordinals.Append(m.ID)
		idToOrdinal[m.ID] = ord

		rec := CommitRecord{ID: m.ID, Summary: m.Summary, When: m.When}
		if len(m.Parents) > 0 {
			parentOrd, ok := idToOrdinal[m.Parents[0]]
			if !ok {
				return nil, nil, fmt.Errorf("index: commit %s's first parent %s not yet visited (accessor did not return topological order)", m.ID, m.Parents[0])
			}
			rec.HasParent = true
			rec.ParentOrdinal = parentOrd
		}
		gi.Commits = append(gi.Commits, rec)

		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("index: canceled at ordinal %d: %w", ord, err)
		}

		var changes []repository.FileChange
		if ord == 0 {
			entries, err := accessor.ListTree(ctx, m.ID)
			if err != nil {
				return nil, nil, fmt.Errorf("index: list root tree: %w", err)
			}
			changes = make([]repository.FileChange, 0, len(entries))
			for _, e := range entries {
				changes = append(changes, repository.FileChange{Path: e.Path, Kind: repository.Added})
			}
		} else {
			changes, err = accessor.Diff(ctx, m.ID)
			if err != nil {
				return nil, nil, fmt.Errorf("index: diff commit %s: %w", m.ID, err)
			}
		}

		type addedTokenBatch struct {
			fileID plumbing.FileID
			tokens []tokenize.Token
		}
		results := make([]addedTokenBatch, len(changes))

		resolve := func(path string) (plumbing.FileID, *fileWorkingState, *document.Document, *bitset.Bitmap) {
			stateMu.Lock()
			defer stateMu.Unlock()
			id := gi.Files.IDFor(path)
			st, ok := states[id]
			if !ok {
				st = &fileWorkingState{tracker: difftracker.New()}
				states[id] = st
			}
			return id, st, gi.documentFor(id), gi.lifetimeFor(id)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i, ch := range changes {
			i, ch := i, ch
			g.Go(func() error {
				id, st, doc, lifetime := resolve(ch.Path)
				added, err := processFileChange(gctx, accessor, m.ID, ord, ch, st, doc, lifetime, mode, utf8Permissive, stats)
				if err != nil {
					trace.Index.Printf("index: %s at commit %s: %v (recovered)", ch.Path, m.ID, err)
					stats.DiffMalformed++
					return nil
				}
				results[i] = addedTokenBatch{fileID: id, tokens: added}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, fmt.Errorf("index: processing commit %s: %w", m.ID, err)
		}

		// word_ever_contained updates are serialized, per spec §5.
		for _, r := range results {
			for _, tok := range r.tokens {
				gi.wordEverContainedFor(tok).Set(uint32(r.fileID))
			}
		}
	}

	if gi.Ordinals.Len() == 0 {
		return gi, stats, nil
	}
	last := gi.Ordinals.Last()
	fileIDs := make([]plumbing.FileID, 0, len(gi.Documents))
	for id := range gi.Documents {
		fileIDs = append(fileIDs, id)
	}
	sort.Slice(fileIDs, func(i, j int) bool { return fileIDs[i] < fileIDs[j] })
	for _, id := range fileIDs {
		if err := gi.Documents[id].Finalize(last); err != nil {
			return nil, nil, fmt.Errorf("index: finalize document %d: %w", id, err)
		}
	}

	tokens := make([]string, 0, len(gi.WordEverContained))
	for t := range gi.WordEverContained {
		tokens = append(tokens, string(t))
	}
	sort.Strings(tokens)
	globalFST, err := buildFST(tokens)
	if err != nil {
		return nil, nil, fmt.Errorf("index: build global_fst: %w", err)
	}
	gi.GlobalFST = globalFST

	return gi, stats, nil
}

// processFileChange applies a single commit's change to one file:
// full-add for Added/root-tree entries and Renamed (Accessor.Diff never
// actually reports Renamed — go-git's tree diff has no rename detection
// — so a rename surfaces upstream as a plain Deleted/Added pair at the
// old and new paths, which this function handles without ever seeing
// Renamed; the case below exists only so an Accessor that does choose
// to report it degrades to "add at the new path" rather than erroring),
// remove_document for Deleted, hunk application + remove_words/add_words
// for Modified (spec §4.6 step 3). It returns the tokens newly added to
// this file at this commit, for the caller to fold into
// word_ever_contained.
func processFileChange(
	ctx context.Context,
	accessor repository.Accessor,
	commitID plumbing.CommitID,
	ord plumbing.CommitOrdinal,
	ch repository.FileChange,
	st *fileWorkingState,
	doc *document.Document,
	lifetime *bitset.Bitmap,
	mode tokenize.Mode,
	utf8Permissive bool,
	stats *IndexStats,
) ([]tokenize.Token, error) {
	switch ch.Kind {
	case repository.Added, repository.Renamed:
		return fullAdd(ctx, accessor, commitID, ord, ch.Path, st, doc, lifetime, mode, utf8Permissive, stats)

	case repository.Deleted:
		removeDocument(ord, st, doc, lifetime)
		return nil, nil

	case repository.Modified:
		return applyModification(ctx, accessor, commitID, ord, ch, st, doc, lifetime, mode, utf8Permissive, stats)

	default:
		return nil, fmt.Errorf("unknown change kind %d", ch.Kind)
	}
}
