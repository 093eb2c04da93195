// ABOUTME: Project file tree model built from flat path/content pairs with synthesized folder nodes.
// ABOUTME: Provides BuildTree/Flatten round-tripping, language tagging, and deterministic ordering.
package project

import (
	"sort"
	"strings"
)

// Kind discriminates the type of a tree node.
type Kind string

const (
	// KindFile is a regular text file with editable content.
	KindFile Kind = "file"
	// KindFolder is a synthesized directory node with no content of its own.
	KindFolder Kind = "folder"
	// KindBinary is a placeholder for content stored out-of-band (documents,
	// images, archives). Binary nodes are not editable and carry no content.
	KindBinary Kind = "binary"
)

// File is a single node in the project tree. Paths are '/'-delimited and
// unique within a project. Folder nodes are synthesized from path prefixes
// and never carry content.
type File struct {
	Path     string  `json:"path"`
	Name     string  `json:"name"`
	Content  string  `json:"content,omitempty"`
	Language string  `json:"language,omitempty"`
	Kind     Kind    `json:"kind"`
	Complete bool    `json:"complete"`
	Children []*File `json:"children,omitempty"`
}

// languageByExtension maps file extensions to language tags used by the
// editor surface and the preview synthesizer.
var languageByExtension = map[string]string{
	".html": "html",
	".htm":  "html",
	".css":  "css",
	".js":   "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".jsx":  "javascriptreact",
	".ts":   "typescript",
	".tsx":  "typescriptreact",
	".json": "json",
	".md":   "markdown",
	".svg":  "svg",
	".txt":  "plaintext",
	".yml":  "yaml",
	".yaml": "yaml",
	".vue":  "vue",
	".py":   "python",
	".go":   "go",
}

// LanguageForPath derives a language tag from the path's extension.
// Unknown extensions map to "plaintext".
func LanguageForPath(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx == -1 {
		return "plaintext"
	}
	if lang, ok := languageByExtension[strings.ToLower(path[idx:])]; ok {
		return lang
	}
	return "plaintext"
}

// baseName returns the final '/'-delimited segment of a path.
func baseName(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx != -1 {
		return path[idx+1:]
	}
	return path
}

// BuildTree constructs a file tree from a flat map of path to content.
// Intermediate folder nodes are synthesized idempotently from path prefixes.
// Roots and children are sorted folders-first, then by name, so output is
// deterministic for identical input.
func BuildTree(files map[string]string) []*File {
	byPath := make(map[string]*File)
	var roots []*File

	// ensureFolder returns the folder node for dir, creating it and its
	// ancestors on first sight.
	var ensureFolder func(dir string) *File
	ensureFolder = func(dir string) *File {
		if node, ok := byPath[dir]; ok {
			return node
		}
		node := &File{
			Path: dir,
			Name: baseName(dir),
			Kind: KindFolder,
		}
		byPath[dir] = node
		if parent := parentDir(dir); parent != "" {
			p := ensureFolder(parent)
			p.Children = append(p.Children, node)
		} else {
			roots = append(roots, node)
		}
		return node
	}

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		node := &File{
			Path:     path,
			Name:     baseName(path),
			Content:  files[path],
			Language: LanguageForPath(path),
			Kind:     KindFile,
		}
		byPath[path] = node
		if parent := parentDir(path); parent != "" {
			p := ensureFolder(parent)
			p.Children = append(p.Children, node)
		} else {
			roots = append(roots, node)
		}
	}

	sortNodes(roots)
	return roots
}

// parentDir returns the parent directory of a path, or "" for root-level paths.
func parentDir(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx != -1 {
		return path[:idx]
	}
	return ""
}

// sortNodes orders siblings folders-first, then by name, recursively.
func sortNodes(nodes []*File) {
	sort.SliceStable(nodes, func(i, j int) bool {
		fi, fj := nodes[i].Kind == KindFolder, nodes[j].Kind == KindFolder
		if fi != fj {
			return fi
		}
		return nodes[i].Name < nodes[j].Name
	})
	for _, n := range nodes {
		if len(n.Children) > 0 {
			sortNodes(n.Children)
		}
	}
}

// Flatten walks a tree and returns the flat path->content map of its file
// nodes. Folder and binary placeholder nodes are omitted, so
// Flatten(BuildTree(m)) == m for any map with unique '/'-delimited paths.
func Flatten(roots []*File) map[string]string {
	out := make(map[string]string)
	var walk func(nodes []*File)
	walk = func(nodes []*File) {
		for _, n := range nodes {
			switch n.Kind {
			case KindFile:
				out[n.Path] = n.Content
			case KindFolder:
				walk(n.Children)
			}
		}
	}
	walk(roots)
	return out
}

// FolderPaths returns the set of synthesized folder paths in a tree.
func FolderPaths(roots []*File) map[string]bool {
	out := make(map[string]bool)
	var walk func(nodes []*File)
	walk = func(nodes []*File) {
		for _, n := range nodes {
			if n.Kind == KindFolder {
				out[n.Path] = true
				walk(n.Children)
			}
		}
	}
	walk(roots)
	return out
}
