// Package deploy provisions a tenant's squad end to end.
//
// A deployment is a fixed sequence of steps. Fatal steps abort the
// deployment with their error; advisory steps are logged and reported in
// Result.AdvisoryFailures while the deployment still succeeds. Every step is
// idempotent, so a failed deployment is retried by deploying again.
//
// Deployments and number changes for one tenant are serialized through a
// lease; different tenants proceed independently.
package deploy
