// Package domain holds the order and position model: typed views over raw
// broker records, the derived state computed from them, and the request
// payloads used to place new orders. Nothing in this package performs I/O or
// logs.
package domain
