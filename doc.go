// Package segments contains the core abstractions for managing the results of
// per-segment computations. A dataset is split into segments, an independent
// computation runs per segment, and the results are assembled, inspected and
// torn down as a single unit. This root package defines the contracts shared by
// every component (keys, stores, partitioned columns, frames, tasks and
// executors) and is a good overview of the framework's key concepts.
package segments
