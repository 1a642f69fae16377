// Package commands defines the sotto CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - init          Create the local identity key pair
//   - fingerprint   Print the identity fingerprint
//   - register      Publish the public key to a server
//   - conversation  Create a conversation
//   - send          Seal and send a message into a conversation
//   - history       Fetch and decrypt stored messages
//   - listen        Stay connected and print incoming messages live
//
// # Implementation
//
// The root command builds a dependency graph (keystore, directory client,
// realtime session) before any subcommand runs, so handlers share one app
// context.
package commands
