package callback

import (
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"fmt"

	"github.com/fernet/fernet-go"
)

// Codec encrypts node ids into URL-safe callback tokens and back.
// Tokens are Fernet tokens and never expire.
type Codec struct {
	key *fernet.Key
}

// NewCodec creates a codec from a url-safe base64 encoded 32-byte key
func NewCodec(key string) (*Codec, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: key is empty", domain.ErrInvalidCallbackKey)
	}
	k, err := fernet.DecodeKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCallbackKey, err)
	}
	return &Codec{key: k}, nil
}

// Encrypt returns the callback token for nodeID
func (c *Codec) Encrypt(nodeID string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(nodeID), c.key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt node id: %w", err)
	}
	return string(tok), nil
}

// Decrypt recovers the node id from a callback token
func (c *Codec) Decrypt(token string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), 0, []*fernet.Key{c.key})
	if msg == nil {
		return "", domain.ErrInvalidCallbackToken
	}
	return string(msg), nil
}
