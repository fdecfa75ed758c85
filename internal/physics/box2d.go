package physics

import (
	"fmt"

	"github.com/ByteArena/box2d"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/cavegen/internal/geom"
)

// Box2DFactory creates static bodies in a box2d world.
type Box2DFactory struct {
	World *box2d.B2World
}

// NewBox2DFactory returns a factory owning a fresh world. Grid y grows
// downward, so gravity points along +y.
func NewBox2DFactory() *Box2DFactory {
	w := box2d.MakeB2World(box2d.MakeB2Vec2(0, 9.8))
	return &Box2DFactory{World: &w}
}

// Box2DBody wraps a created body.
type Box2DBody struct {
	Body     *box2d.B2Body
	fixtures int
}

func (b *Box2DBody) Position() mgl64.Vec2 {
	p := b.Body.GetPosition()
	return mgl64.Vec2{p.X, p.Y}
}

func (b *Box2DBody) FixtureCount() int { return b.fixtures }

// CreateBody implements Factory. Polygons above box2d's vertex limit are
// fanned into convex parts, one fixture each.
func (f *Box2DFactory) CreateBody(pos mgl64.Vec2, poly geom.Polygon, m Material) (Body, error) {
	def := box2d.MakeB2BodyDef()
	def.Type = box2d.B2BodyType.B2_staticBody
	def.Position = box2d.MakeB2Vec2(pos[0], pos[1])
	body := f.World.CreateBody(&def)

	var firstErr error
	fixtures := 0
	for _, part := range FanSplit(poly, box2d.B2_maxPolygonVertices) {
		if err := addFixture(body, part, m); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fixtures++
	}

	if fixtures == 0 {
		f.World.DestroyBody(body)
		if firstErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrBodyRejected, firstErr)
		}
		return nil, ErrBodyRejected
	}
	return &Box2DBody{Body: body, fixtures: fixtures}, nil
}

// BodyCount reports the number of bodies alive in the world.
func (f *Box2DFactory) BodyCount() int {
	return f.World.GetBodyCount()
}

func addFixture(body *box2d.B2Body, part geom.Polygon, m Material) (err error) {
	if !part.Valid() || !part.IsConvex() {
		return fmt.Errorf("%w: degenerate or concave part of %d vertices", ErrFixtureRejected, len(part))
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFixtureRejected, r)
		}
	}()

	verts := make([]box2d.B2Vec2, len(part))
	for i, v := range part {
		verts[i] = box2d.MakeB2Vec2(v[0], v[1])
	}
	shape := box2d.MakeB2PolygonShape()
	shape.Set(verts, len(verts))

	fd := box2d.MakeB2FixtureDef()
	fd.Shape = &shape
	fd.Density = m.Density
	fd.Friction = m.Friction
	fd.Restitution = m.Restitution
	body.CreateFixtureFromDef(&fd)
	return nil
}

// FanSplit cuts a convex polygon into fans from its first vertex, each with
// at most maxVerts vertices. Polygons already within the limit come back
// whole.
func FanSplit(p geom.Polygon, maxVerts int) []geom.Polygon {
	n := len(p)
	if n <= maxVerts || maxVerts < 3 {
		return []geom.Polygon{p}
	}
	var parts []geom.Polygon
	for start := 1; start < n-1; {
		end := min(start+maxVerts-2, n-1)
		part := geom.Polygon{p[0]}
		part = append(part, p[start:end+1]...)
		parts = append(parts, part)
		start = end
	}
	return parts
}
