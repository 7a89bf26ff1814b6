package application

import (
	"crypto/md5"

	"github.com/google/uuid"
)

// OfflineUUID derives a stable game UUID for a username the same way
// offline-mode servers do: the MD5 of "OfflinePlayer:" plus the name, stamped
// as a version 3 UUID with no namespace. Linking falls back to a username
// match at join time, so an inexact UUID still resolves.
func OfflineUUID(username string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + username))
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80

	var id uuid.UUID
	copy(id[:], sum[:])
	return id
}
