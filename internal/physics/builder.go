// Package physics hands generated shards to a physics engine as static
// bodies. The engine sits behind Factory; Box2DFactory is the production one.
package physics

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/cavegen/internal/geom"
	"github.com/talgya/cavegen/internal/world"
)

var (
	// ErrBodyRejected means the engine produced no usable body for a shard.
	ErrBodyRejected = errors.New("body rejected")
	// ErrFixtureRejected means one convex part could not become a fixture.
	ErrFixtureRejected = errors.New("fixture rejected")
)

// Material is the surface applied to every fixture.
type Material struct {
	Density     float64
	Friction    float64
	Restitution float64
}

// MaterialFrom converts the generation config's material.
func MaterialFrom(m world.Material) Material {
	return Material{Density: m.Density, Friction: m.Friction, Restitution: m.Restitution}
}

// Body is an engine body created for one shard.
type Body interface {
	Position() mgl64.Vec2
	FixtureCount() int
}

// Factory creates one static body at pos from a convex polygon given
// relative to pos.
type Factory interface {
	CreateBody(pos mgl64.Vec2, poly geom.Polygon, m Material) (Body, error)
}

// Report tallies one Build call.
type Report struct {
	Bodies   int
	Fixtures int
	Failed   int
	Errors   []error
}

// Builder feeds chunks to a Factory.
type Builder struct {
	factory  Factory
	material Material
	bodies   []Body
}

// NewBuilder returns a builder that creates bodies with material m.
func NewBuilder(f Factory, m Material) *Builder {
	return &Builder{factory: f, material: m}
}

// Bodies returns every body created so far.
func (b *Builder) Bodies() []Body { return b.bodies }

// Build creates one body per shard of c. Each shard is attempted exactly
// once; failures are logged and counted, never fatal.
func (b *Builder) Build(c *world.Chunk) Report {
	var r Report
	for ii, is := range c.Islands {
		for si, s := range is.Shards {
			body, err := b.factory.CreateBody(s.Position, s.Polygon, b.material)
			if err != nil {
				err = fmt.Errorf("chunk %s island %d shard %d: %w", c.Coord, ii, si, err)
				slog.Warn("shard body failed", "error", err)
				r.Failed++
				r.Errors = append(r.Errors, err)
				continue
			}
			b.bodies = append(b.bodies, body)
			r.Bodies++
			r.Fixtures += body.FixtureCount()
		}
	}
	slog.Debug("chunk bodies built", "chunk", c.Coord.String(), "bodies", r.Bodies, "fixtures", r.Fixtures, "failed", r.Failed)
	return r
}

// BuildMap builds every chunk of m in row-major order and sums the reports.
func (b *Builder) BuildMap(m *world.Map) Report {
	var total Report
	for _, coord := range m.Coords() {
		r := b.Build(m.Get(coord))
		total.Bodies += r.Bodies
		total.Fixtures += r.Fixtures
		total.Failed += r.Failed
		total.Errors = append(total.Errors, r.Errors...)
	}
	slog.Info("physics bodies built", "bodies", total.Bodies, "fixtures", total.Fixtures, "failed", total.Failed)
	return total
}
