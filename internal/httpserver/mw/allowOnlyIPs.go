package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

// AllowOnlyCIDRS restricts a route group to the given IPs and CIDRs. An empty
// list leaves the group open.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	prefixes, invalid := utils.ParsePrefixes(allowed)
	for _, s := range invalid {
		log.Warn("ignoring invalid admin CIDR", logger.String("value", s))
	}
	if len(prefixes) == 0 {
		log.Debug("admin CIDR list empty, routes are open")
		return func(next http.Handler) http.Handler { return next }
	}

	log.Debug("admin routes restricted",
		logger.Int("rules", len(prefixes)),
		logger.Bool("trust_proxy", trustProxy))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !prefixes.Contains(ip) {
				log.Warn("admin endpoint rejected",
					logger.String("remote_ip", ip),
					logger.String("path", r.URL.Path))
				utils.WriteError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
