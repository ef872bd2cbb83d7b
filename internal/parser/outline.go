package parser

import (
	"bufio"
	"bytes"
	"context"
	"regexp"

	"github.com/dshills/wsindex/internal/language"
	"github.com/dshills/wsindex/pkg/types"
)

// outlineRule maps a declaration pattern to a symbol kind.
// The first capture group is the symbol name.
type outlineRule struct {
	re   *regexp.Regexp
	kind types.SymbolKind
}

var ecmaRules = []outlineRule{
	{regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)`), types.KindFunction},
	{regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`), types.KindClass},
	{regexp.MustCompile(`^\s*(?:export\s+)?interface\s+([A-Za-z_$][\w$]*)`), types.KindInterface},
	{regexp.MustCompile(`^\s*(?:export\s+)?type\s+([A-Za-z_$][\w$]*)\s*(?:<[^=]*>)?\s*=`), types.KindType},
	{regexp.MustCompile(`^\s*(?:export\s+)?(?:const\s+)?enum\s+([A-Za-z_$][\w$]*)`), types.KindEnum},
	{regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s*)?(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*=>`), types.KindFunction},
}

var pythonRules = []outlineRule{
	{regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_]\w*)`), types.KindFunction},
	{regexp.MustCompile(`^\s+(?:async\s+)?def\s+([A-Za-z_]\w*)`), types.KindMethod},
	{regexp.MustCompile(`^\s*class\s+([A-Za-z_]\w*)`), types.KindClass},
}

// OutlineExtractor finds top-level declarations with line patterns.
// It is a lightweight stand-in for a full parser and reports single-line ranges.
type OutlineExtractor struct {
	rules map[string][]outlineRule
}

// NewOutlineExtractor creates an extractor for TypeScript, JavaScript and Python
func NewOutlineExtractor() *OutlineExtractor {
	return &OutlineExtractor{
		rules: map[string][]outlineRule{
			language.TypeScript: ecmaRules,
			language.JavaScript: ecmaRules,
			language.Python:     pythonRules,
		},
	}
}

// Supports reports whether the extractor has rules for lang
func (o *OutlineExtractor) Supports(lang language.Language) bool {
	_, ok := o.rules[lang.Name]
	return ok
}

// ExtractSymbols scans content line by line and applies the first matching rule
func (o *OutlineExtractor) ExtractSymbols(ctx context.Context, path string, content []byte, lang language.Language) ([]types.SymbolInfo, error) {
	rules, ok := o.rules[lang.Name]
	if !ok {
		return nil, ErrUnsupportedLanguage
	}

	symbols := make([]types.SymbolInfo, 0)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		text := scanner.Text()
		for _, rule := range rules {
			loc := rule.re.FindStringSubmatchIndex(text)
			if loc == nil {
				continue
			}
			symbols = append(symbols, types.SymbolInfo{
				Name: text[loc[2]:loc[3]],
				Kind: rule.kind,
				Range: types.Range{
					Start: types.Position{Line: line, Column: loc[2] + 1},
					End:   types.Position{Line: line, Column: len(text) + 1},
				},
			})
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return symbols, nil
}
