package ports

import "net/url"

// Navigator abstracts the host application's routing surface. The gateway
// uses it to send the user to the login screen after a terminal auth
// failure, to an error view on request, or to soft-reload a public page.
type Navigator interface {
	Push(route string, query url.Values)
	Reload()
	CurrentPath() string
	RequiresAuth() bool
}

const (
	RouteLogin = "login"
	RouteError = "error"
)
