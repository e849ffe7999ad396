package deps

import (
	"time"

	"github.com/MrSnakeDoc/stash/internal/index"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/sessiondb"
)

// SweepStatus reports the last expired-session sweep.
type SweepStatus func() (at time.Time, removed int)

type Deps struct {
	Logger           logger.Logger
	StartTime        time.Time
	Version          string
	Commit           string
	BuildDate        string
	GoVersion        string
	TimeNow          func() time.Time   // for testing, defaults to time.Now
	APIPrefix        string             // mount point of the bookmark API, "" = server root
	EnableHealth     bool               // false => no <prefix>/health route
	AllowedOrigin    string             // CORS origin, empty = no CORS headers
	AllowedCIDRS     []string           // IPs allowed on readyz and admin endpoints
	TrustProxy       bool               // true if running behind a trusted reverse proxy
	AuthBurst        int                // auth requests allowed in a burst per client IP
	AuthRefillPerMin int                // auth tokens refilled per client IP per minute
	PasswordCost     int                // bcrypt cost
	MemoryIndex      *index.MemoryIndex // accounts and bookmarks
	Sessions         *sessiondb.DB      // bearer sessions
	SweepTrigger     chan struct{}      // manual expired-session sweep, nil disables /admin/sweep
	LastSweep        SweepStatus        // nil when no sweeper runs
}

// Now returns d.TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
