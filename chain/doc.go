// Package chain implements the retrieval-augmented answer chain.
//
// Each question runs the same stages: retrieve the top-k chunks, compose a
// prompt from numbered passages, the session history and the question, stream
// the model's answer, optionally append a summary, and finish with a
// "Sources:" block naming the passages the answer cites.
//
// Answers are delivered as an iter.Seq[string] of increments:
//
//	stream, err := c.Stream(ctx, sessionID, "What is the refund policy?")
//	if err != nil {
//		return err
//	}
//	for increment := range stream {
//		fmt.Print(increment)
//	}
//
// Model and retrieval failures do not end the sequence with an error. They
// are rendered inline after ErrorPrefix and recorded in the session like any
// other answer, so the session stays usable.
//
// Cache holds one Chain per Config until it is cleared, which the engine does
// after every ingest.
package chain
