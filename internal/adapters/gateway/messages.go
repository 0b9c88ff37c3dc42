package gateway

// Messages are the user-facing strings the gateway surfaces through the
// toaster. Callers can override any of them; zero values fall back to the
// defaults below.
type Messages struct {
	BadRequest     string
	Forbidden      string
	NotFound       string
	ServerError    string
	Unknown        string
	Network        string
	NetworkRetry   string
	RequestSetup   string
	SessionExpired string
}

func (m Messages) withDefaults() Messages {
	def := Messages{
		BadRequest:     "The request could not be processed.",
		Forbidden:      "You do not have permission to do that.",
		NotFound:       "The requested resource was not found.",
		ServerError:    "Something went wrong on the server.",
		Unknown:        "An unexpected error occurred.",
		Network:        "A network error occurred.",
		NetworkRetry:   "Network error. Please check your connection and try again.",
		RequestSetup:   "The request could not be prepared.",
		SessionExpired: "Your session has expired. Please sign in again.",
	}

	if m.BadRequest == "" {
		m.BadRequest = def.BadRequest
	}
	if m.Forbidden == "" {
		m.Forbidden = def.Forbidden
	}
	if m.NotFound == "" {
		m.NotFound = def.NotFound
	}
	if m.ServerError == "" {
		m.ServerError = def.ServerError
	}
	if m.Unknown == "" {
		m.Unknown = def.Unknown
	}
	if m.Network == "" {
		m.Network = def.Network
	}
	if m.NetworkRetry == "" {
		m.NetworkRetry = def.NetworkRetry
	}
	if m.RequestSetup == "" {
		m.RequestSetup = def.RequestSetup
	}
	if m.SessionExpired == "" {
		m.SessionExpired = def.SessionExpired
	}

	return m
}
