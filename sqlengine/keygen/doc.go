// Package keygen provides the key generation strategies for write statements.
//
//   - DriverKeyGenerator: the database returns the generated keys with the write itself
//   - SelectKeyGenerator: a separate read statement fetches the key after the write
//
// Both populate the key properties of the caller's parameter object, which must therefore
// be a pointer to a struct, a map[string]any, or a slice of those for multi-row writes.
// Failures are reported as sqlengine.ErrKeyGenerationFailed.
package keygen
