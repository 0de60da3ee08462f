package lastfm

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// formatKey is the output-format parameter. The Last.fm protocol requires it
// to be sent with every request but excluded from signature computation.
const formatKey = "format"

// Sign computes the api_sig value for a request: parameters are sorted by key,
// concatenated as key+value with no separator, the shared secret is appended,
// and the result is MD5-hashed to lowercase hex. The format parameter is never
// part of the signed string.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == formatKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(params[k])
	}
	sb.WriteString(secret)

	sum := md5.Sum([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
