// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the run lifecycle that takes input files
// through loading, partitioning and reporting, decoupled from any specific
// entrypoint like a CLI.
package app
