package parser

import (
	"context"
	"fmt"

	"github.com/dshills/wsindex/internal/language"
	"github.com/dshills/wsindex/pkg/types"
)

// Registry dispatches extraction to the extractor registered for a language
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// NewDefaultRegistry registers the Go AST extractor and the outline extractor
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(language.Go, NewGoExtractor())

	outline := NewOutlineExtractor()
	for _, name := range []string{language.TypeScript, language.JavaScript, language.Python} {
		r.Register(name, outline)
	}
	return r
}

// Register associates an extractor with a language name
func (r *Registry) Register(languageName string, extractor Extractor) {
	r.extractors[languageName] = extractor
}

// ExtractSymbols implements Extractor
func (r *Registry) ExtractSymbols(ctx context.Context, path string, content []byte, lang language.Language) ([]types.SymbolInfo, error) {
	extractor, ok := r.extractors[lang.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang.Name)
	}
	return extractor.ExtractSymbols(ctx, path, content, lang)
}
