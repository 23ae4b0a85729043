// Package core provides the companion application operations.
//
// A Companion opens one bbolt database and wires:
//   - Login/SetCredentials/Access: the security actor with password and
//     biometric methods
//   - AddNote/Notes/RemoveNote: the note store (bbolt or PostgreSQL)
//   - Export/Import: password-protected archives of notes and categories
//   - Status/Compact: database maintenance
//
// Imports merge records by name. The strategy either empties the stores
// first, skips records that already exist or overrides them, and
// FormatReports lists every conflict with a diff of overridden records.
package core
