// Package exec provides the data-parallel Task executor. Each partition of a
// Job is handed to one worker goroutine; partitions share nothing except what
// a Task reaches through its own collaborators (e.g. a Store). Once every
// partition has succeeded, a PostGlobalTask's AfterAll step runs exactly once.
package exec
