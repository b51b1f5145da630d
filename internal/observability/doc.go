// Package observability builds the zap logger and the HTTP request logging
// middleware shared by the server and the management CLI.
package observability
