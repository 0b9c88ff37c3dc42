package term

import (
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/rs/zerolog"
	"github.com/weedrice/whiteboard-cli/internal/ports"
)

// Navigator adapts the routing contract to a terminal client. There is no
// route table to push onto; a login push becomes a re-authentication hint
// and a reload is a log line. Commands set the current "route" so the
// gateway's requires-auth decision still works.
type Navigator struct {
	out io.Writer
	log zerolog.Logger

	mu           sync.RWMutex
	currentPath  string
	requiresAuth bool
}

var _ ports.Navigator = (*Navigator)(nil)

func NewNavigator(out io.Writer, log zerolog.Logger) *Navigator {
	return &Navigator{out: out, log: log, currentPath: "/"}
}

// Enter records the route context for the commands that run next.
func (n *Navigator) Enter(path string, requiresAuth bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.currentPath = path
	n.requiresAuth = requiresAuth
}

func (n *Navigator) Push(route string, query url.Values) {
	switch route {
	case ports.RouteLogin:
		fmt.Fprintf(n.out, "Session expired. Run `wb login` to sign in again")
		if redirect := query.Get("redirect"); redirect != "" {
			fmt.Fprintf(n.out, " (you were at %s)", redirect)
		}
		fmt.Fprintln(n.out)
	case ports.RouteError:
		fmt.Fprintf(n.out, "Request failed (status %s): %s\n", query.Get("status"), query.Get("message"))
	default:
		n.log.Debug().Str("route", route).Msg("navigation push ignored")
	}
}

func (n *Navigator) Reload() {
	n.log.Debug().Msg("soft reload requested; nothing to reload in a terminal")
}

func (n *Navigator) CurrentPath() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.currentPath
}

func (n *Navigator) RequiresAuth() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.requiresAuth
}
