// Package watch is the terminal dashboard behind `nixieclock-cfg watch`.
//
// It connects to a clock's display feed over WebSocket and draws every
// frame as a nixie face. After a disconnect it keeps the last face on
// screen; press r to reconnect.
package watch
