// Package agent implements the retrieval-resolution engine: the bounded
// state machine that turns one user query into a grounded answer.
//
// Each invocation runs rewrite → retrieve → grade and then, depending on the
// grading verdict, either generates an answer or works through the recovery
// levers in order: progressive metadata-filter widening (4 levels), bounded
// query-rewrite retries (2 cycles), and finally a single web-search fallback
// merged with the last retrieved set. The counters only move one way, so the
// loop terminates by construction; a hard step ceiling guards against
// misbehaving hooks or providers on top of that.
//
// Categories plug in through the Hook interface. The engine never inspects a
// category beyond its prompts, threshold, top-k, and retriever, which is what
// keeps new categories free of engine changes.
package agent
