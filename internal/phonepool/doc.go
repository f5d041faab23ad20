// Package phonepool assigns telephony numbers to tenants.
//
// A number is never bound to two tenants at once. Allocation reuses idle
// numbers from the account inventory before buying new ones, and runs under
// a lease so that concurrent allocations see each other's picks: the chosen
// number is reserved in the phone registry before the lease is released.
// The lease is process-local by default and shared through Redis when
// configured.
package phonepool
