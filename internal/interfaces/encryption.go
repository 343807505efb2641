package interfaces

// EncryptionService encrypts sensitive fields (credential plaintext) at rest
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
