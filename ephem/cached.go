package ephem

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/astro-aspects/model"
)

// PositionCache stores resolved charts by key. Get reports found=false on a
// miss; errors are reserved for backend failures.
type PositionCache interface {
	Get(ctx context.Context, key string) (chart *model.Chart, found bool, err error)
	Set(ctx context.Context, key string, chart *model.Chart, ttl time.Duration) error
}

// Cached wraps a resolver with a PositionCache. Cache failures never fail a
// resolution; they are reported through OnError and the call falls through
// to the wrapped resolver.
type Cached struct {
	Next  Resolver
	Cache PositionCache
	TTL   time.Duration

	// OnLookup is called with the outcome of every cache lookup.
	OnLookup func(hit bool)
	// OnError receives cache backend errors.
	OnError func(err error)
}

// CacheKey identifies a request independent of its origin tag.
func CacheKey(req Request) string {
	hs, err := ParseHouseSystem(string(req.HouseSystem))
	if err != nil {
		hs = req.HouseSystem
	}
	return fmt.Sprintf("chart:%d:%.4f:%.4f:%s",
		req.Moment.UTC().Unix(), req.Location.Latitude, req.Location.Longitude, hs)
}

// Resolve implements Resolver.
func (c *Cached) Resolve(ctx context.Context, req Request) (*model.Chart, error) {
	if c.Cache == nil {
		return c.Next.Resolve(ctx, req)
	}
	key := CacheKey(req)

	chart, found, err := c.Cache.Get(ctx, key)
	if err != nil {
		c.report(err)
	}
	if c.OnLookup != nil {
		c.OnLookup(found && err == nil)
	}
	if found && err == nil {
		return retag(chart, req.Origin), nil
	}

	chart, err = c.Next.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.Set(ctx, key, chart, c.TTL); err != nil {
		c.report(err)
	}
	return chart, nil
}

func (c *Cached) report(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}

func retag(chart *model.Chart, origin model.ChartOrigin) *model.Chart {
	if chart.Origin == origin {
		return chart
	}
	out := *chart
	out.Origin = origin
	out.Bodies = model.WithOrigin(chart.Bodies, origin)
	return &out
}
