// Package webchat is the chat server behind wschat clients.
//
// Routes:
//   - GET / renders the browser chat page for a freshly minted session.
//   - POST /api/sessions mints a session id for terminal clients.
//   - GET /ws/{sessionID} greets the client and answers every text frame
//     with exactly one text frame, in order.
//   - POST /image renders a generated image for a prompt.
//
// Sessions live in memory only. A session with live connections is never
// evicted.
package webchat
