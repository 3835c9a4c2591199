package fs

import (
	"path/filepath"
	"strings"
)

var languages = map[string]string{
	".go":    "Go",
	".py":    "Python",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".java":  "Java",
	".kt":    "Kotlin",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".cc":    "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".rs":    "Rust",
	".rb":    "Ruby",
	".php":   "PHP",
	".swift": "Swift",
	".scala": "Scala",
	".sh":    "Shell",
	".sql":   "SQL",
	".md":    "Markdown",
	".txt":   "Text",
	".json":  "JSON",
	".yaml":  "YAML",
	".yml":   "YAML",
	".toml":  "TOML",
	".xml":   "XML",
	".html":  "HTML",
	".css":   "CSS",
}

// Classify returns the display language and the lower-cased extension of path.
// Unknown extensions are reported as "Text".
func Classify(path string) (lang, ext string) {
	ext = strings.ToLower(filepath.Ext(path))
	if l, ok := languages[ext]; ok {
		return l, ext
	}
	return "Text", ext
}
