package tarball

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"hash"
	"strings"

	"github.com/matzehuels/shakify/pkg/errors"
	"github.com/matzehuels/shakify/pkg/manifest"
)

// checksum is one expected digest of the archive.
type checksum struct {
	algo   string
	digest []byte
	hash   hash.Hash
}

var algoStrength = map[string]int{"sha1": 1, "sha256": 2, "sha512": 3}

// expectedChecksum picks the strongest digest declared in dist. It returns
// nil when dist declares nothing usable.
func expectedChecksum(dist manifest.Dist) *checksum {
	var best *checksum
	for _, entry := range strings.Fields(dist.Integrity) {
		algo, b64, ok := strings.Cut(entry, "-")
		if !ok {
			continue
		}
		if i := strings.IndexByte(b64, '?'); i >= 0 {
			b64 = b64[:i]
		}
		digest, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			continue
		}
		h := newHash(algo)
		if h == nil {
			continue
		}
		if best == nil || algoStrength[algo] > algoStrength[best.algo] {
			best = &checksum{algo: algo, digest: digest, hash: h}
		}
	}
	if best != nil {
		return best
	}
	if dist.Shasum != "" {
		digest, err := hex.DecodeString(dist.Shasum)
		if err == nil {
			return &checksum{algo: "sha1", digest: digest, hash: sha1.New()}
		}
	}
	return nil
}

func newHash(algo string) hash.Hash {
	switch algo {
	case "sha512":
		return sha512.New()
	case "sha256":
		return sha256.New()
	case "sha1":
		return sha1.New()
	}
	return nil
}

// verify compares the digest accumulated in c.hash with the expected one.
func (c *checksum) verify(url string) error {
	got := c.hash.Sum(nil)
	if string(got) != string(c.digest) {
		return errors.New(errors.ErrCodeIntegrityMismatch,
			"%s checksum mismatch for %s: got %s, want %s", c.algo, url,
			hex.EncodeToString(got), hex.EncodeToString(c.digest))
	}
	return nil
}
