package language

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

// dependencyPatterns holds the import-style patterns per language.
// The first capture group of each pattern is the dependency reference.
var dependencyPatterns = map[string][]*regexp.Regexp{
	TypeScript: ecmaPatterns,
	JavaScript: ecmaPatterns,
	Python: {
		regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\b`),
		regexp.MustCompile(`^\s*import\s+([\w.]+)`),
	},
	Rust: {
		regexp.MustCompile(`^\s*(?:pub\s+)?use\s+([\w:]+)`),
		regexp.MustCompile(`^\s*extern\s+crate\s+(\w+)`),
	},
	Java: {
		regexp.MustCompile(`^\s*import\s+(?:static\s+)?([\w.*]+)\s*;`),
	},
	Kotlin: {
		regexp.MustCompile(`^\s*import\s+([\w.*]+)`),
	},
	C:   cIncludePatterns,
	CPP: cIncludePatterns,
	CSharp: {
		regexp.MustCompile(`^\s*using\s+(?:static\s+)?([\w.]+)\s*;`),
	},
	Ruby: {
		regexp.MustCompile(`^\s*require(?:_relative)?\s*\(?\s*['"]([^'"]+)['"]`),
	},
	PHP: {
		regexp.MustCompile(`^\s*use\s+([\w\\]+)`),
		regexp.MustCompile(`^\s*(?:require|include)(?:_once)?\s*\(?\s*['"]([^'"]+)['"]`),
	},
}

var ecmaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*import\s+(?:[^'"]*?\s+from\s+)?['"]([^'"]+)['"]`),
	regexp.MustCompile(`^\s*export\s+[^'"]*?\s+from\s+['"]([^'"]+)['"]`),
	regexp.MustCompile(`\brequire\s*\(\s*['"]([^'"]+)['"]\s*\)`),
	regexp.MustCompile(`\bimport\s*\(\s*['"]([^'"]+)['"]\s*\)`),
}

var cIncludePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*#\s*include\s*[<"]([^>"]+)[>"]`),
}

var (
	goSingleImport = regexp.MustCompile(`^\s*import\s+(?:[\w.]+\s+)?"([^"]+)"`)
	goBlockOpen    = regexp.MustCompile(`^\s*import\s*\(`)
	goBlockSpec    = regexp.MustCompile(`^\s*(?:[\w.]+\s+)?"([^"]+)"`)
)

// ExtractDependencies returns the dependency references found in content,
// deduplicated in first-seen order. Languages without patterns return nil.
func ExtractDependencies(lang Language, content []byte) []string {
	if !lang.Capability.ExtractsDependencies() {
		return nil
	}
	if lang.Name == Go {
		return extractGoImports(content)
	}

	patterns, ok := dependencyPatterns[lang.Name]
	if !ok {
		return nil
	}

	var deps []string
	seen := make(map[string]struct{})
	scanLines(content, func(line string) {
		for _, re := range patterns {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				deps = appendUnique(deps, seen, m[1])
			}
		}
	})
	return deps
}

// extractGoImports handles both single-line and parenthesised import blocks.
func extractGoImports(content []byte) []string {
	var deps []string
	seen := make(map[string]struct{})
	inBlock := false

	scanLines(content, func(line string) {
		trimmed := strings.TrimSpace(line)
		switch {
		case inBlock:
			if strings.HasPrefix(trimmed, ")") {
				inBlock = false
				return
			}
			if m := goBlockSpec.FindStringSubmatch(line); m != nil {
				deps = appendUnique(deps, seen, m[1])
			}
		case goBlockOpen.MatchString(line):
			inBlock = true
		default:
			if m := goSingleImport.FindStringSubmatch(line); m != nil {
				deps = appendUnique(deps, seen, m[1])
			}
		}
	})
	return deps
}

// scanLines calls fn for every line. The buffer limit covers the whole
// content so a single long line (minified bundles) never ends the scan early.
func scanLines(content []byte, fn func(line string)) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), max(len(content)+1, bufio.MaxScanTokenSize))
	for scanner.Scan() {
		fn(scanner.Text())
	}
}

func appendUnique(deps []string, seen map[string]struct{}, dep string) []string {
	dep = strings.TrimSpace(dep)
	if dep == "" {
		return deps
	}
	if _, ok := seen[dep]; ok {
		return deps
	}
	seen[dep] = struct{}{}
	return append(deps, dep)
}
