package auth

import (
	"github.com/labstack/echo/v4"
)

// Route is one row of a handler's route table.
type Route struct {
	Method  string
	Path    string
	Roles   []string
	Public  bool
	Handler echo.HandlerFunc
}

// Router mounts route tables, composing authenticate then authorize in
// front of every non-public handler.
type Router struct {
	authenticate echo.MiddlewareFunc
}

func NewRouter(authenticate echo.MiddlewareFunc) *Router {
	return &Router{authenticate: authenticate}
}

// Mount registers routes on g.
func (r *Router) Mount(g *echo.Group, routes []Route) {
	for _, rt := range routes {
		g.Add(rt.Method, rt.Path, rt.Handler, r.chain(rt)...)
	}
}

func (r *Router) chain(rt Route) []echo.MiddlewareFunc {
	if rt.Public {
		return nil
	}
	return []echo.MiddlewareFunc{r.authenticate, RequireRole(rt.Roles...)}
}
