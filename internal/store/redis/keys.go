package redis

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/streammarks/internal/kv"
)

const (
	// DefaultNamespace prefixes every data key
	DefaultNamespace = "streammarks"
	// versionstampSuffix names the sequence key. It lives outside "<ns>:*" so scans never see it.
	versionstampSuffix = ".versionstamp"
)

// Keys encodes tuple keys for one namespace.
//
// Each part is query-escaped, so ':' never appears inside a part and the glob
// characters '*', '?', '[' and '\' are always escaped. A SCAN MATCH pattern
// built from a prefix therefore only matches keys that have that exact prefix.
type Keys struct {
	ns string
}

func NewKeys(namespace string) Keys {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return Keys{ns: namespace}
}

// Encode returns the Redis key for k
func (ks Keys) Encode(k kv.Key) string {
	var b strings.Builder
	b.WriteString(ks.ns)
	for _, part := range k {
		b.WriteByte(':')
		b.WriteString(url.QueryEscape(part))
	}
	return b.String()
}

// Decode extracts the tuple from a Redis key
func (ks Keys) Decode(raw string) (kv.Key, error) {
	rest, ok := strings.CutPrefix(raw, ks.ns+":")
	if !ok {
		return nil, fmt.Errorf("invalid key %q: missing namespace %q", raw, ks.ns)
	}
	parts := strings.Split(rest, ":")
	key := make(kv.Key, len(parts))
	for i, p := range parts {
		part, err := url.QueryUnescape(p)
		if err != nil {
			return nil, fmt.Errorf("invalid key %q: %w", raw, err)
		}
		key[i] = part
	}
	return key, nil
}

// Pattern returns the SCAN MATCH pattern selecting every key strictly under prefix
func (ks Keys) Pattern(prefix kv.Key) string {
	return ks.Encode(prefix) + ":*"
}

// Versionstamp returns the sequence key used to draw versionstamps
func (ks Keys) Versionstamp() string {
	return ks.ns + versionstampSuffix
}
