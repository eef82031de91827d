// Package progress normalizes the heterogeneous textual progress output
// of the external downloader and muxer into a single 0-100 signal and
// renders it on a shared display.
package progress
