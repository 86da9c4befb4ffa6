package ports

// PasswordHasher is a one-way password hash capability.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}
