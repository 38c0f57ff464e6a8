// Package coaching contains the reflection-streak domain: given read access
// to a user's reflection calendar, it computes the number of consecutive days
// ending at the most recent reflection.
package coaching
