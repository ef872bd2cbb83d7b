package parser

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/dshills/wsindex/internal/language"
	"github.com/dshills/wsindex/pkg/types"
)

// ErrUnsupportedLanguage is returned when no extractor is registered for a language
var ErrUnsupportedLanguage = errors.New("no symbol extractor for language")

// Extractor produces the symbols of one file. Failures are per-file.
type Extractor interface {
	ExtractSymbols(ctx context.Context, path string, content []byte, lang language.Language) ([]types.SymbolInfo, error)
}

// GoExtractor handles AST-based symbol extraction for Go source files
type GoExtractor struct{}

// NewGoExtractor creates a new GoExtractor instance
func NewGoExtractor() *GoExtractor {
	return &GoExtractor{}
}

// ExtractSymbols parses Go source and extracts functions, methods, types, consts and vars.
// Syntax errors are non-fatal as long as a partial AST is available.
func (g *GoExtractor) ExtractSymbols(ctx context.Context, path string, content []byte, _ language.Language) ([]types.SymbolInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A fresh FileSet per file keeps position tables from accumulating across a run
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.SkipObjectResolution)
	if err != nil && (file == nil || file.Name == nil || file.Name.Name == "") {
		// No package clause: not Go source at all
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	extractor := &symbolExtractor{
		fset:    fset,
		symbols: make([]types.SymbolInfo, 0),
	}
	ast.Inspect(file, extractor.visit)

	return extractor.symbols, nil
}

// symbolExtractor is a visitor for AST traversal that extracts symbols
type symbolExtractor struct {
	fset    *token.FileSet
	symbols []types.SymbolInfo
}

// visit is called for each AST node during traversal
func (e *symbolExtractor) visit(node ast.Node) bool {
	if node == nil {
		return false
	}

	switch n := node.(type) {
	case *ast.FuncDecl:
		e.extractFunction(n)
		// Function bodies hold no package-level declarations
		return false
	case *ast.GenDecl:
		e.extractGenDecl(n)
	}

	return true
}

// extractFunction extracts function and method declarations
func (e *symbolExtractor) extractFunction(funcDecl *ast.FuncDecl) {
	sym := types.SymbolInfo{
		Name:   funcDecl.Name.Name,
		Kind:   types.KindFunction,
		Range:  e.rangeFromNode(funcDecl),
		Detail: e.extractFunctionSignature(funcDecl),
	}

	if funcDecl.Recv != nil && len(funcDecl.Recv.List) > 0 {
		sym.Kind = types.KindMethod
	}

	e.symbols = append(e.symbols, sym)
}

// extractGenDecl extracts type, const, and var declarations
func (e *symbolExtractor) extractGenDecl(genDecl *ast.GenDecl) {
	for _, spec := range genDecl.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			e.extractTypeSpec(s)
		case *ast.ValueSpec:
			e.extractValueSpec(s, genDecl.Tok)
		}
	}
}

// extractTypeSpec extracts struct, interface, and type alias declarations
func (e *symbolExtractor) extractTypeSpec(typeSpec *ast.TypeSpec) {
	sym := types.SymbolInfo{
		Name:  typeSpec.Name.Name,
		Range: e.rangeFromNode(typeSpec),
	}

	switch t := typeSpec.Type.(type) {
	case *ast.StructType:
		sym.Kind = types.KindStruct
		sym.Detail = e.extractStructSignature(typeSpec.Name.Name, t)
	case *ast.InterfaceType:
		sym.Kind = types.KindInterface
		sym.Detail = e.extractInterfaceSignature(typeSpec.Name.Name, t)
	default:
		sym.Kind = types.KindType
		sym.Detail = fmt.Sprintf("type %s", typeSpec.Name.Name)
	}

	e.symbols = append(e.symbols, sym)

	if structType, ok := typeSpec.Type.(*ast.StructType); ok {
		e.extractStructFields(typeSpec.Name.Name, structType)
	}
}

// extractStructFields extracts field symbols from a struct
func (e *symbolExtractor) extractStructFields(structName string, structType *ast.StructType) {
	if structType.Fields == nil {
		return
	}

	for _, field := range structType.Fields.List {
		for _, name := range field.Names {
			e.symbols = append(e.symbols, types.SymbolInfo{
				Name:   name.Name,
				Kind:   types.KindField,
				Range:  e.rangeFromNode(field),
				Detail: fmt.Sprintf("%s.%s %s", structName, name.Name, e.exprToString(field.Type)),
			})
		}
	}
}

// extractValueSpec extracts const and var declarations
func (e *symbolExtractor) extractValueSpec(valueSpec *ast.ValueSpec, tok token.Token) {
	kind := types.KindVar
	if tok == token.CONST {
		kind = types.KindConst
	}

	for _, name := range valueSpec.Names {
		sym := types.SymbolInfo{
			Name:  name.Name,
			Kind:  kind,
			Range: e.rangeFromNode(valueSpec),
		}

		switch {
		case valueSpec.Type != nil:
			sym.Detail = fmt.Sprintf("%s %s", name.Name, e.exprToString(valueSpec.Type))
		case len(valueSpec.Values) > 0:
			sym.Detail = fmt.Sprintf("%s = ...", name.Name)
		default:
			sym.Detail = name.Name
		}

		e.symbols = append(e.symbols, sym)
	}
}

// extractFunctionSignature builds a function signature string
func (e *symbolExtractor) extractFunctionSignature(funcDecl *ast.FuncDecl) string {
	var sig strings.Builder

	sig.WriteString("func ")

	if funcDecl.Recv != nil && len(funcDecl.Recv.List) > 0 {
		sig.WriteString("(")
		sig.WriteString(e.exprToString(funcDecl.Recv.List[0].Type))
		sig.WriteString(") ")
	}

	sig.WriteString(funcDecl.Name.Name)

	sig.WriteString("(")
	if funcDecl.Type.Params != nil {
		sig.WriteString(e.fieldListToString(funcDecl.Type.Params))
	}
	sig.WriteString(")")

	if funcDecl.Type.Results != nil {
		results := e.fieldListToString(funcDecl.Type.Results)
		if results != "" {
			if funcDecl.Type.Results.NumFields() > 1 {
				sig.WriteString(" (")
				sig.WriteString(results)
				sig.WriteString(")")
			} else {
				sig.WriteString(" ")
				sig.WriteString(results)
			}
		}
	}

	return sig.String()
}

func (e *symbolExtractor) extractStructSignature(name string, structType *ast.StructType) string {
	fieldCount := 0
	if structType.Fields != nil {
		fieldCount = structType.Fields.NumFields()
	}
	return fmt.Sprintf("type %s struct { ... } // %d fields", name, fieldCount)
}

func (e *symbolExtractor) extractInterfaceSignature(name string, interfaceType *ast.InterfaceType) string {
	methodCount := 0
	if interfaceType.Methods != nil {
		methodCount = interfaceType.Methods.NumFields()
	}
	return fmt.Sprintf("type %s interface { ... } // %d methods", name, methodCount)
}

// fieldListToString converts a field list to a string representation
func (e *symbolExtractor) fieldListToString(fieldList *ast.FieldList) string {
	if fieldList == nil || len(fieldList.List) == 0 {
		return ""
	}

	var parts []string
	for _, field := range fieldList.List {
		typeStr := e.exprToString(field.Type)
		if len(field.Names) > 0 {
			for _, name := range field.Names {
				parts = append(parts, fmt.Sprintf("%s %s", name.Name, typeStr))
			}
		} else {
			parts = append(parts, typeStr)
		}
	}

	return strings.Join(parts, ", ")
}

// exprToString converts an expression to a string representation
func (e *symbolExtractor) exprToString(expr ast.Expr) string {
	if expr == nil {
		return ""
	}

	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + e.exprToString(t.X)
	case *ast.ArrayType:
		return "[]" + e.exprToString(t.Elt)
	case *ast.MapType:
		return fmt.Sprintf("map[%s]%s", e.exprToString(t.Key), e.exprToString(t.Value))
	case *ast.ChanType:
		return "chan " + e.exprToString(t.Value)
	case *ast.FuncType:
		return "func(...)"
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.SelectorExpr:
		return e.exprToString(t.X) + "." + t.Sel.Name
	case *ast.Ellipsis:
		return "..." + e.exprToString(t.Elt)
	case *ast.IndexExpr:
		return e.exprToString(t.X) + "[" + e.exprToString(t.Index) + "]"
	default:
		return "..."
	}
}

// rangeFromNode converts a node's token span to a Range
func (e *symbolExtractor) rangeFromNode(node ast.Node) types.Range {
	start := e.fset.Position(node.Pos())
	end := e.fset.Position(node.End())
	return types.Range{
		Start: types.Position{Line: start.Line, Column: start.Column},
		End:   types.Position{Line: end.Line, Column: end.Column},
	}
}
