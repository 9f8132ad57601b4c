// Command torrel is the administrative CLI for the torrel pipeline: it
// inspects history and the catalog, runs one-shot passes, and manages the
// configuration file. The long-running poller lives in cmd/torreld.
package main
