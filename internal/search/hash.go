package search

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// HashHex returns the lowercase hex MD5 digest of s. MD5 is a standard
// library primitive here, not a third-party dependency: spec treats it as
// such.
func HashHex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether candidate's MD5 digest equals targetHash,
// normalizing targetHash to lowercase for the comparison.
func Matches(candidate, targetHash string) bool {
	return HashHex(candidate) == strings.ToLower(targetHash)
}
