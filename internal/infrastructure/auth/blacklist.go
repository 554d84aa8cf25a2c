package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/pot-code/learning-gateway/internal/infrastructure/driver"
)

// Blacklist revoked tokens, kept until they would have expired anyway
type Blacklist struct {
	KV driver.KeyValueDB
}

// NewBlacklist ...
func NewBlacklist(KV driver.KeyValueDB) *Blacklist {
	return &Blacklist{KV}
}

func revokedKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:revoked:" + hex.EncodeToString(sum[:])
}

// Revoke put token on the list for ttl, expired tokens need no entry
func (b *Blacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.KV.SetEX(ctx, revokedKey(token), "1", ttl)
}

// Revoked reports whether token was revoked
func (b *Blacklist) Revoked(ctx context.Context, token string) (bool, error) {
	return b.KV.Exists(ctx, revokedKey(token))
}
