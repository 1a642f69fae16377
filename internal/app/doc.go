// Package app wires client-side dependencies for the CLI.
//
// It builds the keystore, the directory client and the realtime session
// from Config, exposing them via the Wire struct for commands to use.
package app
