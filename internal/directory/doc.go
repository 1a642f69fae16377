// Package directory is the client half of the server's REST surface:
// principal registration and lookup, conversation creation, the sealed
// key map, and message history.
package directory
