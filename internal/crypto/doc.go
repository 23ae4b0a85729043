// Package crypto provides password hashing for companion.
//
// Hashing uses Argon2id with:
//   - 16-byte random salt unless an explicit salt is supplied
//   - 5 passes over 64 MiB of memory, single lane
//   - 32-byte derived key
//
// The output is the PHC string form
// ($argon2id$v=19$m=...,t=...,p=...$salt$key), so the salt and cost
// parameters travel with the hash.
//
// Memory safety:
//   - Use ClearBytes() to zero passwords after use
package crypto
