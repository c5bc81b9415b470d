package router

// Decision is the outcome of a guard check. A zero Redirect means the
// navigation may proceed.
type Decision struct {
	Redirect string
}

// Allowed reports whether navigation proceeds unmodified
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

// Guard decides whether navigation to route may complete. It is a pure
// function of the route metadata and the session flag.
func Guard(route Route, authenticated bool) Decision {
	if route.RequiresAuth && !authenticated {
		return Decision{Redirect: LoginPath}
	}
	if route.Name == LoginRoute && authenticated {
		return Decision{Redirect: HomePath}
	}
	return Decision{}
}
