// Package models manages the results of per-segment model fits as a single unit.
//
// A Container is created over a segments Frame. Creation pre-allocates one
// hidden result Key per segment (the slot-key column), so that independent
// workers can later record their outcome with AddResult without coordinating
// with one another. ToFrame materializes the recorded outcomes next to the
// segments, and Remove with cascade tears every artifact down again.
package models
