// Package model contains the data structures shared between the
// extractor, downloader and batch orchestrator.
package model
