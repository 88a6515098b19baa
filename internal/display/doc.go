// Package display feeds the clock face.
//
// The behaviors push a Frame whenever the shown second changes. A Frame
// carries the corrected UTC epoch and the offset separately, so every
// consumer renders the same local time:
//
//	{"epoch":784887151,"offset":-18000,"synced":true,"mode":"clock","degraded":false}
//
// Implementations:
//
//   - Hub: WebSocket feed at GET /ws, plus GET /metrics
//   - Terminal: nixie face drawn with internal/ui
//   - Log: debug log lines
//
// Multi combines them.
package display
