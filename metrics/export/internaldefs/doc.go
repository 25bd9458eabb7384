// Package internaldefs exposes stable metric names shared by exporter implementations.
//
// Counter and histogram definitions live here so that both the Prometheus and OTel
// exporters publish identical regauth_* names and bucket boundaries.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
