// Package retrieval answers "top-k relevant chunks for a query" on top of a
// storage.IndexStore.
//
// A Retriever is built with a fixed depth k so that every question in a
// session sees the same amount of context:
//
//	r, err := retrieval.New(index, 10)
//	result, err := r.Retrieve(ctx, "how do I reset my password?")
//
// Retriever also satisfies langchaingo's schema.Retriever, and VectorStore
// exposes the index as a langchaingo vectorstores.VectorStore.
package retrieval
