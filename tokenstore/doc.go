// Package tokenstore holds the single bearer token the session client
// attaches to requests.
//
// Three backends are provided: Memory for tests and one-shot commands, File
// for the CLI (mode 0600, watched with fsnotify so a login from another
// process is picked up) and Redis for processes that share one session.
// Sealed wraps any of them with an encryption.Encryptor.
//
//	store, err := tokenstore.New(tokenstore.Config{
//	    Kind:       tokenstore.KindFile,
//	    Path:       "/home/me/.config/kelmah/token",
//	    Passphrase: os.Getenv("KELMAH_TOKEN_PASSPHRASE"),
//	})
//
// Every backend treats Clear of an empty slot as success and reports a
// missing token as ok=false with a nil error.
package tokenstore
