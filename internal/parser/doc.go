// Package parser provides the symbol-extraction capability used by the indexer.
//
// Extraction is pluggable through the Extractor interface. The default
// Registry wires:
//   - GoExtractor: go/ast based extraction of functions, methods, structs,
//     interfaces, type declarations, struct fields, consts, and vars
//   - OutlineExtractor: line-pattern extraction of top-level declarations for
//     TypeScript, JavaScript, and Python
//
// # Basic Usage
//
//	reg := parser.NewDefaultRegistry()
//	symbols, err := reg.ExtractSymbols(ctx, "main.go", content, language.Detect("main.go"))
//	if err != nil {
//	    // per-file failure, the caller skips the file
//	}
//
// # Error Handling
//
// Go syntax errors are tolerated whenever go/parser still returns a partial
// AST; symbols found before the error are returned. A language without a
// registered extractor yields ErrUnsupportedLanguage.
package parser
