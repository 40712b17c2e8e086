// Package frame provides the in-memory implementation of segments.Frame, as
// well as loaders which build Frames from JSON Lines data. Column names passed to
// the JSONL loader are gjson paths (https://github.com/tidwall/gjson).
package frame
