// Package cli turns command-line arguments and their environment variable
// fallbacks into a validated app.Config. Usage errors surface as ExitError
// carrying exit code 2.
package cli
