// Package api implements the HTTP REST API and WebSocket stream for EdgeTrack Core.
//
// This package provides:
//   - REST endpoints for sensor summaries, reading history and commands
//   - A WebSocket hub that doubles as a monitor sink, relaying readings,
//     statistics and alarm tiers to subscribed clients
//   - Optional bearer token authentication (see package auth)
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Endpoints
//
//	GET  /api/v1/health
//	GET  /api/v1/sensors
//	GET  /api/v1/sensors/{id}
//	GET  /api/v1/sensors/{id}/history?limit=N
//	POST /api/v1/sensors/{id}/commands   (operator)
//	GET  /api/v1/ws
//
// # Security
//
// When api.jwt.secret is empty every route is open. Otherwise all routes but
// /health need a viewer token in the Authorization header (or the token query
// parameter for WebSocket clients), and commands need an operator token.
//
// # Graceful Degradation
//
// The server runs without history storage; the history route then answers
// 503 and everything else keeps working.
package api
