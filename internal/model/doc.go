// Package model defines the records companion stores and exports.
//
// Every record exposes its fields as an ordered list for columnar export
// and can be rebuilt from the same ordered list on import. Adding a field
// means appending it to both Fields and FromValues; reordering breaks
// existing backups.
package model
