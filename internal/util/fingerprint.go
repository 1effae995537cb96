package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// Fingerprint computes a stable hash for a finding key. The context is
// usually the trimmed source line, so fingerprints survive edits that only
// shift line numbers when start and end are passed as zero.
func Fingerprint(ruleID, file string, start, end int, context string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%d|%s", ruleID, filepath.ToSlash(file), start, end, context)
	return hex.EncodeToString(h.Sum(nil))
}
