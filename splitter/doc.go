// Package splitter cuts documents into overlapping, bounded chunks.
//
// Lengths are measured in runes. Each chunk ends at the last paragraph break
// in its window, falling back to a line break, a space, and finally a hard
// cut. The next chunk starts overlap runes before the previous end, moved back
// to the start of a word, so adjacent chunks always share at least overlap
// runes. Splitting is deterministic.
//
// Splitter also satisfies langchaingo's textsplitter.TextSplitter and can be
// passed to any documentloaders.Loader's LoadAndSplit.
package splitter
