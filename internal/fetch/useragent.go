// Weighted User-Agent rotation and matching Sec-CH-UA client hints,
// grounded on the teacher's scraper/httpfetch.go realistic-header
// construction (there hardcoded to a single Chrome 131 string);
// generalized here into the weighted rotation spec.md §4.2 requires
// (Windows ~55% / macOS ~35% / Linux ~10%, Chrome 132-136).
package fetch

import (
	"fmt"
	"math/rand"
)

// chromeVersions are the versions spec.md names for both the simple
// fetcher's UA rotation and the TLS-sidecar's fingerprint family.
var chromeVersions = []int{132, 133, 134, 135, 136}

var osProfiles = []struct {
	name   string
	weight float64
	uaOS   string
}{
	{"windows", 0.55, "Windows NT 10.0; Win64; x64"},
	{"macos", 0.35, "Macintosh; Intel Mac OS X 10_15_7"},
	{"linux", 0.10, "X11; Linux x86_64"},
}

// notABrandVariant returns the "Not A Brand" placeholder version Chrome
// uses in Sec-CH-UA, which rotated through three known values across
// the 132-136 release window per spec.md §4.2.
func notABrandVariant(major int) string {
	switch {
	case major <= 133:
		return "8"
	case major <= 135:
		return "99"
	default:
		return "24"
	}
}

// RandomUserAgent picks a weighted-random OS and Chrome version,
// returning the User-Agent string and the matching Sec-CH-UA-* headers.
func RandomUserAgent() (userAgent string, secCHUA string, secCHUAPlatform string) {
	major := chromeVersions[rand.Intn(len(chromeVersions))]
	osChoice := weightedOS()
	ua := fmt.Sprintf(
		"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.0.0 Safari/537.36",
		osChoice.uaOS, major,
	)
	notABrand := notABrandVariant(major)
	ch := fmt.Sprintf(`"Not.A/Brand";v="%s", "Chromium";v="%d", "Google Chrome";v="%d"`, notABrand, major, major)
	platform := `"Windows"`
	switch osChoice.name {
	case "macos":
		platform = `"macOS"`
	case "linux":
		platform = `"Linux"`
	}
	return ua, ch, platform
}

func weightedOS() struct {
	name   string
	weight float64
	uaOS   string
} {
	r := rand.Float64()
	acc := 0.0
	for _, p := range osProfiles {
		acc += p.weight
		if r <= acc {
			return p
		}
	}
	return osProfiles[0]
}
