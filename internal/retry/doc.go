// Package retry implements the bounded retry policy shared by the server
// readiness probe and the relationship setup calls.
//
// A Policy caps the number of attempts and chooses a fixed or exponential
// delay between them; the waiting is delegated to cenkalti/backoff.
package retry
