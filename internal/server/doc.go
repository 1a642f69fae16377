// Package server exposes the realtime websocket endpoint and the REST
// directory surface over one gorilla/mux router. The websocket side owns
// the transport only: each accepted socket gets a write pump preserving
// frame order and a read loop that feeds the protocol engine.
package server
