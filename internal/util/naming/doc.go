// Package naming derives deterministic names for external platform resources.
//
// Tools, knowledge-query tools, structured outputs, and squads are looked up
// on the voice-agent platform by name, so every name is a pure function of
// the logical identity (logical name, version, content) and never random.
package naming
