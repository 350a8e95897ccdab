package browser

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockedResourceTypes are aborted on every page. Listing extraction only
// needs the DOM, so heavy assets are pure latency.
var blockedResourceTypes = map[proto.NetworkResourceType]struct{}{
	proto.NetworkResourceTypeImage:      {},
	proto.NetworkResourceTypeStylesheet: {},
	proto.NetworkResourceTypeFont:       {},
	proto.NetworkResourceTypeMedia:      {},
}

// analyticsDomains are tracker endpoints the marketplace pages load that
// contribute nothing to the rendered listings.
var analyticsDomains = map[string]struct{}{
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"googletagservices.com": {},
	"googlesyndication.com": {},
	"doubleclick.net":       {},
	"facebook.net":          {},
	"connect.facebook.net":  {},
	"criteo.com":            {},
	"criteo.net":            {},
	"hotjar.com":            {},
	"mixpanel.com":          {},
	"amplitude.com":         {},
	"braze.com":             {},
	"sentry.io":             {},
	"wcs.naver.net":         {},
	"ntm.pstatic.net":       {},
	"analytics.kakao.com":   {},
}

// isAnalyticsDomain checks a hostname and its parent domains against the
// blocklist (e.g. "t1.daumcdn.analytics.kakao.com" → "analytics.kakao.com").
func isAnalyticsDomain(host string) bool {
	host = strings.ToLower(host)
	if _, ok := analyticsDomains[host]; ok {
		return true
	}
	for {
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
		if _, ok := analyticsDomains[host]; ok {
			return true
		}
	}
}

// setupHijack installs a request interceptor that aborts blocked resource
// types and analytics requests, cutting navigation latency on listing pages.
//
// Returns the running HijackRouter so the caller can Stop() it with the page.
func setupHijack(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()

	// Pattern "*" + empty resourceType intercepts everything; the handler
	// decides per-request.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, blocked := blockedResourceTypes[ctx.Request.Type()]; blocked {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}

		if u, err := url.Parse(ctx.Request.URL().String()); err == nil {
			if isAnalyticsDomain(u.Hostname()) {
				ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}

		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks; it exits when router.Stop() is called.
	go router.Run()

	return router
}
