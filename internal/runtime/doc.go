// Package runtime defines how shipc hands a staged bundle to a container
// runtime.
//
// The runc subpackage runs the bundle for real. Standby stands in for it in
// test mode: it stops after staging so an outside harness can inspect the
// bundle, and never starts a container.
package runtime
