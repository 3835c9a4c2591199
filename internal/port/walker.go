package port

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

// FileInfo describes a file selected for segmenting.
type FileInfo struct {
	Path    string // absolute path
	RelPath string // forward-slash path relative to the walk root
	ModTime int64
	Size    int64
}
