// Package language maps file paths to languages and extracts dependency
// references with lightweight per-language text patterns.
package language

import (
	"path/filepath"
	"strings"
)

// Capability is the closed set of things the indexer can do for a language.
type Capability uint8

const (
	// CapabilityPlain files are fingerprinted only.
	CapabilityPlain Capability = iota
	// CapabilityDependencies files also get dependency references.
	CapabilityDependencies
	// CapabilitySymbols files get dependencies and symbol extraction.
	CapabilitySymbols
)

// String returns the capability name
func (c Capability) String() string {
	switch c {
	case CapabilityDependencies:
		return "dependencies"
	case CapabilitySymbols:
		return "symbols"
	default:
		return "plain"
	}
}

// ExtractsSymbols reports whether symbol extraction is requested for c.
func (c Capability) ExtractsSymbols() bool { return c == CapabilitySymbols }

// ExtractsDependencies reports whether dependency patterns are applied for c.
func (c Capability) ExtractsDependencies() bool { return c >= CapabilityDependencies }

// Language is a detected language and what the indexer does with it.
type Language struct {
	Name       string
	Capability Capability
}

// Unknown is returned for extensions missing from the table.
var Unknown = Language{Name: "Unknown", Capability: CapabilityPlain}

// Language names used by the extractors and dependency patterns.
const (
	Go         = "Go"
	TypeScript = "TypeScript"
	JavaScript = "JavaScript"
	Python     = "Python"
	Rust       = "Rust"
	Java       = "Java"
	Kotlin     = "Kotlin"
	C          = "C"
	CPP        = "C++"
	CSharp     = "C#"
	Ruby       = "Ruby"
	PHP        = "PHP"
)

var languages = map[string]Language{
	Go:         {Name: Go, Capability: CapabilitySymbols},
	TypeScript: {Name: TypeScript, Capability: CapabilitySymbols},
	JavaScript: {Name: JavaScript, Capability: CapabilitySymbols},
	Python:     {Name: Python, Capability: CapabilitySymbols},
	Rust:       {Name: Rust, Capability: CapabilityDependencies},
	Java:       {Name: Java, Capability: CapabilityDependencies},
	Kotlin:     {Name: Kotlin, Capability: CapabilityDependencies},
	C:          {Name: C, Capability: CapabilityDependencies},
	CPP:        {Name: CPP, Capability: CapabilityDependencies},
	CSharp:     {Name: CSharp, Capability: CapabilityDependencies},
	Ruby:       {Name: Ruby, Capability: CapabilityDependencies},
	PHP:        {Name: PHP, Capability: CapabilityDependencies},
}

// ExtensionToLanguage maps file extensions (without dot) to language names.
var ExtensionToLanguage = map[string]string{
	"go": Go,
	"ts": TypeScript, "tsx": TypeScript, "mts": TypeScript, "cts": TypeScript,
	"js": JavaScript, "jsx": JavaScript, "mjs": JavaScript, "cjs": JavaScript,
	"py": Python, "pyi": Python, "pyw": Python,
	"rs":   Rust,
	"java": Java,
	"kt":   Kotlin, "kts": Kotlin,
	"c": C, "h": C,
	"cpp": CPP, "cc": CPP, "cxx": CPP, "hpp": CPP, "hxx": CPP,
	"cs":   CSharp,
	"rb":   Ruby,
	"php":  PHP,
	"json": "JSON", "jsonc": "JSON",
	"yaml": "YAML", "yml": "YAML",
	"toml": "TOML",
	"md":   "Markdown", "mdx": "Markdown",
	"html": "HTML", "htm": "HTML",
	"css": "CSS", "scss": "SCSS",
	"sql":   "SQL",
	"proto": "Protobuf",
	"sh":    "Shell", "bash": "Shell", "zsh": "Shell",
}

// Detect returns the language for path based on its extension.
func Detect(path string) Language {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return Unknown
	}
	name, ok := ExtensionToLanguage[ext]
	if !ok {
		return Unknown
	}
	if lang, ok := languages[name]; ok {
		return lang
	}
	return Language{Name: name, Capability: CapabilityPlain}
}

// Lookup returns the language registered under name.
func Lookup(name string) (Language, bool) {
	lang, ok := languages[name]
	return lang, ok
}
