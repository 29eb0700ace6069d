package api

import (
	"net"
	"net/http"

	lru "github.com/hashicorp/golang-lru"
	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"
)

// maxClients bounds how many per-client buckets are remembered.
const maxClients = 10000

type clientLimiter struct {
	limit   rate.Limit
	burst   int
	clients *lru.Cache
}

func newClientLimiter(perSecond float64, burst int) (*clientLimiter, error) {
	if burst <= 0 {
		burst = 1
	}
	clients, err := lru.New(maxClients)
	if err != nil {
		return nil, err
	}
	return &clientLimiter{limit: rate.Limit(perSecond), burst: burst, clients: clients}, nil
}

func (l *clientLimiter) allow(client string) bool {
	if v, ok := l.clients.Get(client); ok {
		return v.(*rate.Limiter).Allow()
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	// Two racing first requests may each create a bucket; the later Add wins.
	l.clients.Add(client, lim)
	return lim.Allow()
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) throttle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		client := clientKey(c.Request())
		if !s.limiter.allow(client) {
			s.log.Info("too many requests", "client", client, "path", c.Request().URL.Path)
			return writeError(c, http.StatusTooManyRequests, ResponseError{
				Message: "too many requests, try again in a few seconds",
				Type:    "rate_limit_error",
			})
		}
		return next(c)
	}
}
