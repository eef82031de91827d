// Package platform provides small filesystem helpers shared by the
// downloader and the batch orchestrator.
package platform
