// Package model holds the domain types shared by the crawl, sequencing and
// playback pipeline: reviews, tracks, source references, decisions, history
// entries and resolved media descriptors.
package model
