// Package auth is the authentication core of the flashcards API.
//
// Credentials:
//   - PasswordHasher derives a salted one way credential from a plaintext
//     and verifies plaintexts against stored credentials. CredentialHasher
//     writes bcrypt (default) or argon2id and reads both, so the algorithm
//     can change without invalidating stored accounts. BoundedHasher caps
//     how many derivations run at once.
//
// Tokens:
//   - TokenService signs HS256 tokens naming a SubjectKey and verifies them
//     against a single secret. FormatSubject and ParseSubject are the only
//     codec for the subject claim.
//
// Errors:
//   - Every login failure collapses to ErrInvalidCredentials and every token
//     failure to ErrUnauthorized before it reaches a client. The specific
//     variants exist for logs and tests only.
//
// HTTP:
//   - NewApp mounts signup, login and the protected flashcard routes on a
//     go-router server backed by fiber. RouteAuthenticator.ProtectedRoute
//     guards routes with the jwtware middleware.
package auth
