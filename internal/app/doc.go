// Package app provides application initialization and lifecycle management
// for the keymint license server. It wires configuration, logging,
// observability, the file-backed store and the license service into an HTTP
// server with graceful shutdown.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize logging and observability
//	3. Open the license store and load existing keys
//	4. Initialize the license service with its dependencies
//	5. Set up HTTP handlers and middleware
//	6. Configure and start the HTTP server
//	7. Set up graceful shutdown handlers
//
// All initialization errors are returned to the caller. The app does not
// call os.Exit() directly, allowing the main function to control the exit
// process.
package app
