// Package api serves the capture HTTP interface used by headset clients.
//
// Clients upload a recording with its tracking payload, or drive a
// server-side screen capture with start/stop calls, and receive the rendered
// heatmap video in the response. Read-only job and log views support
// operators. When enabled the server advertises itself over mDNS so clients
// on the local network can find it without configuration.
package api
