// Package provisioning creates and reuses the voice-platform resources a
// tenant's squad is built from.
//
// Every Ensure operation is idempotent: it derives a deterministic lookup
// key from the logical resource (see util/naming), returns the existing
// resource when one carries that key, and creates it otherwise. Platform
// calls are retried with exponential backoff while the platform reports a
// transient failure; any other failure is returned immediately.
//
// # Operations
//
//   - EnsureTools: function tools referenced by a template
//   - EnsureKnowledgeQueryTool: a tenant's knowledge-base query tool
//   - EnsureCallAnalysisOutput: post-call structured output, linked to assistants
//   - FindCredential: credential lookup for tool webhooks
//   - EnsureSquad: the tenant's squad, updated in place when it exists
//   - EnsurePhoneNumber: the number imported into the platform and bound to the squad
package provisioning
