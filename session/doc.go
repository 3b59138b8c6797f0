// Package session keeps per-session conversational memory for the lifetime
// of the process.
//
// Each session is identified by a uuid token and owns an ordered list of
// user and assistant turns. Nothing is persisted; a restart forgets every
// session.
package session
