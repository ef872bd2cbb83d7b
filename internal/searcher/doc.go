// Package searcher provides the read-only query surface over the index:
// symbol search, point lookups and project statistics.
//
// Symbol search is a case-insensitive substring match against every symbol
// name, capped at a fixed number of results. Results are cached per query
// and store generation with an LRU cache, so a cached answer is never
// served after the index changes.
//
//	s := searcher.New(store, searcher.Options{MaxResults: 100})
//	for _, m := range s.SearchSymbols("handler") {
//	    fmt.Printf("%s:%d %s\n", m.Path, m.Symbol.Range.Start.Line, m.Symbol.Name)
//	}
//
//	stats := s.GetProjectStatistics()
//	fmt.Printf("%d files, %s\n", stats.TotalFiles, stats.TotalSize)
package searcher
