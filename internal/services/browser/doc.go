// Package browser drives a headless browser binary to capture page
// snapshots and extract readable article text.
package browser
