// Package telephony wraps the telephony provider that owns the account's
// phone number inventory.
package telephony
