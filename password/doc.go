// Package password verifies supplied passwords against stored credential hashes.
//
// Hashes written by the user service are bcrypt; argon2id PHC strings are also
// accepted. [Verify] picks the algorithm from the hash prefix and always compares
// in constant time.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and the stored hash.
//   - Import any other carnet package.
//   - Log plaintext passwords or hashes.
package password
