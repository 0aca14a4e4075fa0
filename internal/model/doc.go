// Package model defines domain data structures used across the service: media
// targets, metadata records, download jobs, state enums, and typed error
// kinds. Structures carry explicit state transitions and perform no I/O.
package model
