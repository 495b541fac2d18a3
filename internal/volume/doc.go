// Package volume models the bind-mount volumes requested on the command line.
package volume
