package deps

import (
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/session"
	"github.com/MrSnakeDoc/smartmarks/internal/store"
	"github.com/MrSnakeDoc/smartmarks/internal/view"
)

type Deps struct {
	Logger        logger.Logger
	StartTime     time.Time
	Version       string
	Commit        string
	BuildDate     string
	GoVersion     string
	TimeNow       func() time.Time // for testing, defaults to time.Now
	AllowedHosts  []string         // Host headers allowed on the infra endpoints
	AllowedCIDRS  []string         // IPs allowed on the infra endpoints
	TrustProxy    bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Backend       store.Backend    // bookmarks, change feed and sessions
	Gate          *session.Gate    // sign-in/out
	Views         *view.Tracker    // live dashboard views
	CookieName    string           // session cookie name
	CookieSecure  bool             // mark the session cookie Secure
	LoginBurst    int              // login attempts allowed at once per client
	LoginPerMin   int              // login attempts regained per minute per client
	ImportTrigger chan struct{}    // manual import trigger (nil if import is disabled)
	ImportStatus  func() ImportStatus
}

// ImportStatus describes the last import run, for the infra endpoint.
type ImportStatus struct {
	File    string
	LastRun time.Time
	LastErr error
}
