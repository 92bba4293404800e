package output

import (
	"io"
	"path"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
)

// categoryExt maps categories whose payload is source code to the file
// extension the platform uses for them. Everything else is XML.
var categoryExt = map[string]string{
	"ApexClass":     ".cls",
	"ApexTrigger":   ".trigger",
	"ApexPage":      ".page",
	"ApexComponent": ".component",
}

// extLexer overrides lexer detection for platform extensions chroma
// does not know
var extLexer = map[string]string{
	".cls":       "java",
	".trigger":   "java",
	".page":      "html",
	".component": "html",
	".cmp":       "html",
	".app":       "html",
	".evt":       "html",
	".design":    "xml",
	".auradoc":   "html",
}

// SourceName returns a file name for a payload: the member path for
// composite entries, otherwise the entry name with its category's
// extension
func SourceName(category, entry, filePath string) string {
	if filePath != "" {
		return path.Base(filePath)
	}
	ext, ok := categoryExt[category]
	if !ok {
		ext = ".xml"
	}
	return strings.ReplaceAll(entry, "/", "_") + ext
}

// Highlight writes content to w with syntax highlighting chosen from
// filename. Without color the content is written verbatim.
func Highlight(w io.Writer, content, filename, style string, color bool) error {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if !color {
		_, err := io.WriteString(w, content)
		return err
	}
	if style == "" {
		style = "monokai"
	}
	if err := quick.Highlight(w, content, lexerName(filename, content), "terminal256", style); err != nil {
		_, err = io.WriteString(w, content)
		return err
	}
	return nil
}

// lexerName picks the chroma lexer for filename, falling back to content
// analysis and then plain text
func lexerName(filename, content string) string {
	if strings.HasSuffix(filename, "-meta.xml") {
		return "xml"
	}
	if name, ok := extLexer[path.Ext(filename)]; ok {
		return name
	}
	if lexer := lexers.Match(filename); lexer != nil {
		return lexer.Config().Name
	}
	if lexer := lexers.Analyse(content); lexer != nil {
		return lexer.Config().Name
	}
	return "plaintext"
}
