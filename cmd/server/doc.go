// Package main runs the sotto server: the REST directory surface and the
// realtime websocket endpoint.
//
// Configuration is taken from the environment:
//
//	SOTTO_ADDR     listen address, default :8080
//	DATABASE_URL   Postgres DSN; without it state is held in memory and
//	               lost on process exit
//	REDIS_URL      Redis address for typing presence shared across server
//	               instances; without it presence is process-local
//
// The server never sees plaintext or private keys; it stores sealed
// envelopes and public keys only.
package main
