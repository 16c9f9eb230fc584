// Resource-type blocking via rod's request hijacking, grounded on the
// teacher's scraper/hijack.go almost verbatim. Blocking images, fonts,
// media, and stylesheets is the default for non-screenshot,
// non-stealth navigations per spec.md §4.3; screenshot and stealth
// requests allow everything through since blocking is itself a bot
// signal.
package fetch

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

var blockedResourceTypes = map[proto.NetworkResourceType]bool{
	proto.NetworkResourceTypeImage:      true,
	proto.NetworkResourceTypeStylesheet: true,
	proto.NetworkResourceTypeFont:       true,
	proto.NetworkResourceTypeMedia:      true,
}

// setupHijack installs a catch-all router on page blocking the
// configured resource types, returning the router so the caller can
// `defer router.Stop()`. Passing blockResources=false installs a
// pass-through router with nothing blocked.
func setupHijack(page *rod.Page, blockResources bool) *rod.HijackRouter {
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if blockResources && blockedResourceTypes[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		_ = h.LoadResponse(nil, true)
	})
	go router.Run()
	return router
}
