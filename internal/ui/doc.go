// Package ui provides terminal rendering for the clock and its operator CLI.
//
// It has two parts. The nixie face (RenderTubes, RenderClockFace) draws
// seven-segment tubes in amber and stands in for the physical display
// when the daemon runs on a workstation or in `nixieclock-cfg watch`.
// Header and Result are the run-once banners and result boxes printed by
// the CLI commands.
//
// Colors degrade automatically: when stdout is not a terminal lipgloss
// renders plain text.
package ui
