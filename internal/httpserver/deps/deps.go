package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/controller"
	"github.com/MrSnakeDoc/linkshelf/internal/engine"
	"github.com/MrSnakeDoc/linkshelf/internal/gateway"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
	"github.com/MrSnakeDoc/linkshelf/internal/metrics"
	"github.com/MrSnakeDoc/linkshelf/internal/storage"
)

// Controller is the command surface exposed over HTTP.
type Controller interface {
	Dispatch(ctx context.Context, cmd controller.Command) (controller.State, error)
	State() controller.State
	Snapshot() engine.Snapshot
}

// Account reads the profile behind the stored credential.
type Account interface {
	UserInfo(ctx context.Context, apiKey string) (gateway.UserInfo, error)
	RSSFeedURL(ctx context.Context, apiKey string) (string, error)
	Subscription(ctx context.Context, apiKey string) (gateway.Subscription, error)
}

type Credentials interface {
	Get(ctx context.Context) (string, error)
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed to access the server
	AllowedCIDRS []string         // IPs allowed to access the API and probes
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)

	Controller    Controller
	Account       Account
	Credentials   Credentials
	Storage       storage.Store    // pinged by /readyz when it supports it
	Metrics       *metrics.Metrics // nil disables /metrics
	ReloadTrigger chan struct{}    // Channel to trigger a manual reload
	FeedTitle     string

	// CommandRate limits POST /api/commands per client IP. Zero disables it.
	CommandBurst     int
	CommandPerMinute int
}

// Now returns the injected clock or time.Now.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
