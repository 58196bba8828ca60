// Package main hosts the signctl CLI.
//
// signctl drives the same upload and inference pipeline as the server from
// a terminal, and covers the operational chores around it: vocabulary
// lookups, classification history, schema migrations and environment
// checks. Configuration resolves exactly as it does for the server.
package main
