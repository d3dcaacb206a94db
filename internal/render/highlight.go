package render

import (
	"io"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const codeStyle = "github-dark"

// highlight writes a fenced code block as chroma-highlighted HTML.
// Unknown languages fall back to the plaintext lexer, so the only error
// paths are tokenizer or writer failures.
func highlight(w io.Writer, code, lang string) error {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(codeStyle)
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return err
	}
	formatter := chromahtml.New(chromahtml.WithClasses(false))
	return formatter.Format(w, style, iterator)
}
