package types

import (
	"errors"
)

// SymbolKind represents the type of a named code construct
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindClass     SymbolKind = "class"
	KindStruct    SymbolKind = "struct"
	KindInterface SymbolKind = "interface"
	KindType      SymbolKind = "type"
	KindConst     SymbolKind = "const"
	KindVar       SymbolKind = "var"
	KindField     SymbolKind = "field"
	KindEnum      SymbolKind = "enum"
	KindModule    SymbolKind = "module"
)

// Position represents a location in source code (1-based)
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is the source span a symbol covers
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// SymbolInfo represents a symbol produced by a symbol extractor.
// Values are read-only once they are stored in an index entry.
type SymbolInfo struct {
	Name   string     `json:"name"`
	Kind   SymbolKind `json:"kind"`
	Range  Range      `json:"range"`
	Detail string     `json:"detail,omitempty"` // Signature or container name
}

// ValidateKind checks if the symbol kind is valid
func (s *SymbolInfo) ValidateKind() error {
	switch s.Kind {
	case KindFunction, KindMethod, KindClass, KindStruct, KindInterface, KindType,
		KindConst, KindVar, KindField, KindEnum, KindModule:
		return nil
	default:
		return errors.New("invalid symbol kind")
	}
}

// Validate performs comprehensive validation of the symbol
func (s *SymbolInfo) Validate() error {
	if s.Name == "" {
		return errors.New("symbol name is required")
	}

	if err := s.ValidateKind(); err != nil {
		return err
	}

	if s.Range.Start.Line <= 0 || s.Range.End.Line <= 0 {
		return errors.New("invalid range: line numbers must be positive")
	}

	if s.Range.Start.Line > s.Range.End.Line {
		return errors.New("invalid range: start line must be before or equal to end line")
	}

	return nil
}
