// Package voice is a client for the voice-agent platform that hosts squads,
// tools, structured outputs and imported phone numbers.
//
// The platform exposes a JSON REST API authenticated with a bearer key.
// Errors are returned as *APIError; IsTransient reports whether a call is
// worth retrying and APIError.RetryAfter carries the server's hint.
package voice
