// Package connection implements the marketplace stream transport.
//
// The stream is socket.io v4 over Engine.IO v4 over a single websocket:
//   - Client owns one websocket for one session: Engine.IO handshake,
//     ping/pong, socket.io connect, event emission and disconnect reasons
//   - Manager opens a fresh Client per session and forwards its socket.io
//     packets onto one long-lived channel for the Message Router
//
// Reconnection is not handled here. A lost session is reported as a
// RawMessage with Disconnect set, and the supervisor decides what to do.
package connection
