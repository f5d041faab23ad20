// Package retry repeats voice and telephony platform calls that fail
// transiently. Waits double from an initial delay up to a ceiling; a
// rate-limit response's retry-after hint takes the place of the computed wait.
package retry
