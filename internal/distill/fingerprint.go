// Content fingerprinting for change-tracking (spec.md §4.8 stage 7),
// grounded on rohmanhakim-docs-crawler's pkg/hashutil, which dispatches
// between SHA-256 and blake3. WebPeel always uses blake3 here since
// distilled content is the large-document case that benefits from it.
package distill

import "lukechampine.com/blake3"

// Fingerprint returns the hex BLAKE3 digest of the distilled content,
// stable across repeated fetches of byte-identical content (the
// round-trip law in spec.md §8).
func Fingerprint(content string) string {
	sum := blake3.Sum256([]byte(content))
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(sum)*2)
	for i, b := range sum {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0x0f]
	}
	return string(out)
}
