// Package encryption seals tokens at rest. A passphrase is stretched with
// SHA-256 into a 256-bit key for AES-256-GCM (default) or ChaCha20-Poly1305.
// Output is base64 of nonce||ciphertext.
//
// # Usage
//
//	enc, err := encryption.New(passphrase, encryption.WithAlgorithm(encryption.AlgorithmChaCha20))
//	sealed, err := enc.Encrypt(token)
//	token, err := enc.Decrypt(sealed)
package encryption
