// Package civicdata holds module-level metadata shared by the server
// and its command line entry point.
package civicdata

// Version is the current release version.
const Version = "0.3.0"
