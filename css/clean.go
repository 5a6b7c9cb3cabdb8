// Package css prepares chapter stylesheets for inlining.
package css

import (
	"bytes"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Stylesheet is cleaned stylesheet text with @import rules taken out.
type Stylesheet struct {
	Text    []byte
	Imports []string
}

// Cleaner rewrites stylesheets so they could not override reader rules.
type Cleaner struct {
	log *zap.Logger
}

func NewCleaner(log *zap.Logger) *Cleaner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cleaner{log: log.Named("css")}
}

type token struct {
	tt   css.TokenType
	data []byte
}

func tokenize(data []byte) ([]token, error) {
	l := css.NewLexer(parse.NewInput(bytes.NewReader(data)))

	var tokens []token
	for {
		tt, text := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != nil && err != io.EOF {
				return tokens, err
			}
			return tokens, nil
		}
		tokens = append(tokens, token{tt: tt, data: bytes.Clone(text)})
	}
}

func blank(tt css.TokenType) bool {
	return tt == css.WhitespaceToken || tt == css.CommentToken
}

// Clean removes every "!important" marker with whitespace preceding it and
// extracts top level @import rules. HTML comment delimiters are dropped and
// every "<" is written as CSS escape. Other text is preserved byte for byte,
// so cleaning is idempotent.
func (c *Cleaner) Clean(data []byte, source string) Stylesheet {
	tokens, err := tokenize(data)
	if err != nil {
		c.log.Debug("CSS lexer stopped early", zap.String("source", source), zap.Error(err))
	}

	var (
		sheet   Stylesheet
		out     = make([]byte, 0, len(data))
		depth   int
		removed int
	)
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch t.tt {
		case css.CDOToken, css.CDCToken:
			continue
		case css.LeftBraceToken:
			depth++
		case css.RightBraceToken:
			depth--
		case css.DelimToken:
			if string(t.data) != "!" {
				break
			}
			j := i + 1
			for j < len(tokens) && blank(tokens[j].tt) {
				j++
			}
			if j < len(tokens) && tokens[j].tt == css.IdentToken && strings.EqualFold(string(tokens[j].data), "important") {
				out = bytes.TrimRight(out, " \t\r\n\f")
				i = j
				removed++
				continue
			}
		case css.AtKeywordToken:
			if depth != 0 || !strings.EqualFold(string(t.data), "@import") {
				break
			}
			j := i + 1
			var url string
			for ; j < len(tokens) && tokens[j].tt != css.SemicolonToken; j++ {
				if url == "" {
					url = importURL(tokens[j])
				}
			}
			if url != "" {
				sheet.Imports = append(sheet.Imports, url)
			}
			// swallow line break following the rule
			if j+1 < len(tokens) && tokens[j+1].tt == css.WhitespaceToken {
				j++
			}
			i = j
			continue
		}
		out = append(out, t.data...)
	}

	if removed > 0 || len(sheet.Imports) > 0 {
		c.log.Debug("Stylesheet cleaned",
			zap.String("source", source),
			zap.Int("important", removed),
			zap.Strings("imports", sheet.Imports))
	}
	// text ends up inside <style>, markup must not be able to close it
	sheet.Text = bytes.ReplaceAll(out, []byte("<"), []byte(`\3c `))
	return sheet
}

func importURL(t token) string {
	switch t.tt {
	case css.StringToken:
		return unquote(string(t.data))
	case css.URLToken:
		// url(something), the token data is the full url(...) string
		s := string(t.data)
		s = s[strings.IndexByte(s, '(')+1:]
		s = strings.TrimSuffix(s, ")")
		return unquote(strings.TrimSpace(s))
	}
	return ""
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
