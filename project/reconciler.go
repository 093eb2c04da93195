// ABOUTME: Reconciler that applies a possibly-unordered stream of file lifecycle events to the project tree.
// ABOUTME: Enforces per-path monotonic completion and keeps the tree renderable at every intermediate step.
package project

import (
	"context"
	"strings"
	"sync"
)

// OpKind identifies the kind of file operation announced by the generation backend.
type OpKind string

const (
	OpCreate        OpKind = "create"
	OpModify        OpKind = "modify"
	OpFixed         OpKind = "fixed"
	OpDocumentation OpKind = "documentation"
)

// OpStatus is the progress state of a file operation.
type OpStatus string

const (
	StatusInProgress OpStatus = "in_progress"
	StatusComplete   OpStatus = "complete"
)

// Operation is a single file_operation event payload.
type Operation struct {
	Path    string
	Kind    OpKind
	Status  OpStatus
	Content string
}

// BlobStore receives document/binary outputs that are stored out-of-band
// rather than in the text tree. Implementations must tolerate repeat writes
// for the same path.
type BlobStore interface {
	WriteBlob(ctx context.Context, path string, data []byte) error
}

// entry is the per-path reconciliation state.
type entry struct {
	content  string
	complete bool
	kind     Kind
}

// Reconciler consumes file lifecycle events and keeps a flat path->state map
// consistent under the ordering rules of the generation protocol:
//
//   - events for a single path apply synchronously in arrival order
//   - a missing file_start never drops content (the node is created on the fly)
//   - once a path is complete with content C, only another complete/fixed
//     event may replace C; stray chunks are ignored
//
// The tree view is derived on demand, so the flat map stays the single
// source of truth and the one-entry-per-path invariant holds by construction.
type Reconciler struct {
	mu    sync.Mutex
	files map[string]*entry
	blobs BlobStore
}

// NewReconciler creates an empty Reconciler. The blob store may be nil, in
// which case document outputs are kept as in-tree placeholders only.
func NewReconciler(blobs BlobStore) *Reconciler {
	return &Reconciler{
		files: make(map[string]*entry),
		blobs: blobs,
	}
}

// FileStart inserts an empty file node for path if absent. Repeat start
// events for a known path are no-ops.
func (r *Reconciler) FileStart(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[path]; ok {
		return
	}
	r.files[path] = &entry{kind: KindFile}
}

// FileChunk appends a streamed chunk to path, or atomically replaces the
// content when complete is true. A chunk for an unknown path creates the
// node with the chunk as initial content. Chunks arriving after the path
// has completed are discarded; only FileComplete or a complete/fixed
// operation may change a completed path.
func (r *Reconciler) FileChunk(path, chunk string, complete bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.files[path]
	if !ok {
		e = &entry{kind: KindFile}
		r.files[path] = e
	}
	if complete {
		e.content = chunk
		e.complete = true
		return
	}
	if e.complete {
		return
	}
	e.content += chunk
}

// FileComplete is the authoritative final overwrite for a path. It always
// wins over any partial streamed state.
func (r *Reconciler) FileComplete(path, fullContent string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.files[path]
	if !ok {
		e = &entry{kind: KindFile}
		r.files[path] = e
	}
	e.content = fullContent
	e.complete = true
}

// Apply handles a file_operation event. Documentation outputs are written
// out-of-band through the blob store and represented in the tree as a
// non-editable placeholder; text operations follow the same mutation rules
// as streamed chunks, except that a complete create/modify/fixed operation
// may replace an already-completed path.
func (r *Reconciler) Apply(ctx context.Context, op Operation) error {
	if op.Kind == OpDocumentation {
		return r.applyDocument(ctx, op)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.files[op.Path]
	if !ok {
		e = &entry{kind: KindFile}
		r.files[op.Path] = e
	}
	if op.Status == StatusComplete {
		// A contentless complete only seals the path; accumulated streamed
		// content is never dropped.
		if op.Content != "" {
			e.content = op.Content
		}
		e.complete = true
		return nil
	}
	if e.complete {
		// In-progress events never downgrade a completed path.
		return nil
	}
	e.content += op.Content
	return nil
}

// applyDocument stores a document output out-of-band and records a binary
// placeholder node for it.
func (r *Reconciler) applyDocument(ctx context.Context, op Operation) error {
	r.mu.Lock()
	e, ok := r.files[op.Path]
	if !ok {
		e = &entry{kind: KindBinary}
		r.files[op.Path] = e
	}
	e.kind = KindBinary
	if op.Status == StatusComplete {
		e.complete = true
	}
	blobs := r.blobs
	r.mu.Unlock()

	if blobs != nil && op.Content != "" {
		return blobs.WriteBlob(ctx, op.Path, []byte(op.Content))
	}
	return nil
}

// Get returns the current content and completion state for a path.
func (r *Reconciler) Get(path string) (content string, complete bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.files[path]
	if !ok {
		return "", false, false
	}
	return e.content, e.complete, true
}

// Snapshot returns a copy of the flat path->content map for all text files.
// Binary placeholders are excluded; the preview synthesizer and the repair
// request both consume this shape.
func (r *Reconciler) Snapshot() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.files))
	for path, e := range r.files {
		if e.kind == KindBinary {
			continue
		}
		out[path] = e.content
	}
	return out
}

// Tree returns the current project tree with synthesized folder nodes and
// binary placeholders.
func (r *Reconciler) Tree() []*File {
	r.mu.Lock()
	text := make(map[string]string)
	type binEntry struct {
		path     string
		complete bool
	}
	var binaries []binEntry
	for path, e := range r.files {
		if e.kind == KindBinary {
			binaries = append(binaries, binEntry{path, e.complete})
			continue
		}
		text[path] = e.content
	}
	completion := make(map[string]bool, len(r.files))
	for path, e := range r.files {
		completion[path] = e.complete
	}
	r.mu.Unlock()

	roots := BuildTree(text)
	for _, b := range binaries {
		roots = insertBinaryNode(roots, b.path, b.complete)
	}
	markCompletion(roots, completion)
	return roots
}

// insertBinaryNode grafts a binary placeholder into the tree, synthesizing
// missing ancestor folders the same way BuildTree does.
func insertBinaryNode(roots []*File, path string, complete bool) []*File {
	node := &File{
		Path:     path,
		Name:     baseName(path),
		Kind:     KindBinary,
		Complete: complete,
	}
	parent := parentDir(path)
	if parent == "" {
		roots = append(roots, node)
		sortNodes(roots)
		return roots
	}

	var find func(nodes []*File, dir string) *File
	find = func(nodes []*File, dir string) *File {
		for _, n := range nodes {
			if n.Kind != KindFolder {
				continue
			}
			if n.Path == dir {
				return n
			}
			if strings.HasPrefix(dir, n.Path+"/") {
				return find(n.Children, dir)
			}
		}
		return nil
	}
	if p := find(roots, parent); p != nil {
		p.Children = append(p.Children, node)
		sortNodes(p.Children)
		return roots
	}

	// No existing ancestor folder: synthesize the chain from the root.
	folder := &File{Path: parent, Name: baseName(parent), Kind: KindFolder, Children: []*File{node}}
	for dir := parentDir(parent); dir != ""; dir = parentDir(dir) {
		folder = &File{Path: dir, Name: baseName(dir), Kind: KindFolder, Children: []*File{folder}}
	}
	roots = append(roots, folder)
	sortNodes(roots)
	return roots
}

// markCompletion copies per-path completion flags onto file nodes.
func markCompletion(nodes []*File, completion map[string]bool) {
	for _, n := range nodes {
		if n.Kind == KindFolder {
			markCompletion(n.Children, completion)
			continue
		}
		n.Complete = completion[n.Path]
	}
}

// Len returns the number of tracked paths.
func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

// Reset discards the entire tree and all pending partial-file state. Callers
// must pair this with the rest of the workspace teardown so no store is
// reset in isolation.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = make(map[string]*entry)
}
