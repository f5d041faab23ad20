// Package fleet plans and executes template upgrades across every deployed
// tenant.
//
// An upgrade happens in two phases:
//  1. Plan: each tenant with an active deployment is marked pending or skip
//     by comparing its deployed template version with the target.
//  2. Execute: in dry-run mode the plan is returned with a migration report
//     and a preview. Otherwise every pending tenant is re-deployed with the
//     target template, at most Concurrency at a time. A tenant that fails is
//     recorded as failed and the batch continues.
//
// Re-deploying updates a tenant's squad in place, so the previous
// configuration stays recoverable from the deployment record's squad id.
package fleet
