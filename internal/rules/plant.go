package rules

import (
	"math"
	"time"

	"github.com/zeusync/simkernel/internal/core/dispatch"
	"github.com/zeusync/simkernel/internal/core/element"
	"github.com/zeusync/simkernel/internal/core/entity"
	"github.com/zeusync/simkernel/internal/core/operation"
)

const (
	minFruitDrop = 1
	maxFruitDrop = 3
)

// Plant grows from nourishment on every tick and drops fruit.
func Plant(thing *dispatch.Behavior) *dispatch.Behavior {
	return dispatch.NewBehavior("plant").Extend(thing).
		On("nourish", plantNourish).
		On("tick", plantTick).
		On("touch", plantTouch).
		On("chop", plantChop)
}

func plantNourish(_ dispatch.World, e *entity.Entity, op *operation.Operation, _ *operation.Vector) error {
	arg, err := firstArg(op)
	if err != nil {
		return err
	}
	mass, ok := element.Float(arg["mass"])
	if !ok {
		return nil
	}
	return e.Set("nourishment", e.Props().Float("nourishment", 0)+mass)
}

// plantTick reschedules itself, feeds on its container and emits a single set
// carrying the grown state.
func plantTick(w dispatch.World, e *entity.Entity, _ *operation.Operation, res *operation.Vector) error {
	props := e.Props()
	speed := props.Float("speed", 1)
	res.Add(operation.New("tick", self(e),
		operation.FutureIn(time.Duration(float64(w.BasicTick())*speed))))

	if parent := e.Parent(); parent != nil {
		res.Add(operation.New("eat", operation.To(parent.ID())))
	}

	arg := element.Map{"id": e.ID()}
	old := props.Float("status", 1)
	status := old
	nourishment := props.Float("nourishment", 0)
	if nourishment <= 0 {
		status -= 0.1
	} else {
		status = math.Min(status+0.1, 1)
		mass := props.Float("mass", 0)
		grown := mass + nourishment
		if maxmass, ok := props.Get("maxmass"); ok {
			if m, ok := element.Float(maxmass); ok {
				grown = math.Min(grown, m)
			}
		}
		if err := e.Set("nourishment", 0.0); err != nil {
			return err
		}
		arg["mass"] = grown
		if bbox := e.Location().BBox; mass > 0 && bbox.IsValid() {
			arg["bbox"] = bbox.Scale(math.Cbrt(grown / mass)).List()
		}
	}
	arg["status"] = status

	fruits := props.Int("fruits", 0)
	dropped := dropFruit(w, e, fruits, res)
	fruits -= int64(dropped)
	bbox := e.Location().BBox
	if bbox.IsValid() && bbox.High.Z > props.Float("sizeAdult", 4) {
		if chance := props.Int("fruitChance", 2); chance <= 1 || w.Rand().Int64N(chance) == 0 {
			fruits++
			dropped--
		}
	}
	if dropped != 0 || old < 1 {
		arg["fruits"] = fruits
	}

	res.Add(operation.New("set", self(e), operation.Args(arg)))
	return nil
}

// dropFruit emits creates for up to a few fruits around the plant and
// returns how many were dropped.
func dropFruit(w dispatch.World, e *entity.Entity, fruits int64, res *operation.Vector) int {
	if fruits < 1 {
		return 0
	}
	name := e.Props().String("fruitName", "")
	if name == "" {
		return 0
	}
	rng := w.Rand()
	drop := min(int(fruits), minFruitDrop+rng.IntN(maxFruitDrop-minFruitDrop+1))
	loc := e.Location()
	spread := loc.BBox.High.Z * float64(e.Props().Int("radius", 1))
	for range drop {
		pos := entity.Vector3{
			X: loc.Pos.X + (rng.Float64()*2-1)*spread,
			Y: loc.Pos.Y + (rng.Float64()*2-1)*spread,
		}
		arg := element.Map{
			"name":    name,
			"parents": element.List{name},
			"pos":     pos.List(),
		}
		if loc.Parent != nil {
			arg["loc"] = loc.Parent.ID()
		}
		res.Add(operation.New("create", self(e), operation.Args(arg)))
	}
	return drop
}

func plantTouch(w dispatch.World, e *entity.Entity, op *operation.Operation, res *operation.Vector) error {
	if err := requireReach(w, e, op); err != nil {
		return err
	}
	fruits := e.Props().Int("fruits", 0)
	if dropped := dropFruit(w, e, fruits, res); dropped != 0 {
		res.Add(operation.New("set", self(e),
			operation.Arg("id", e.ID(), "fruits", fruits-int64(dropped))))
	}
	return nil
}

// plantChop fells a standing plant. A felled plant is destroyed and replaced
// by lumber of the same mass.
func plantChop(w dispatch.World, e *entity.Entity, op *operation.Operation, res *operation.Vector) error {
	if err := requireReach(w, e, op); err != nil {
		return err
	}
	loc := e.Location()
	if e.Props().String("mode", "") == "felled" {
		res.Add(operation.New("set", self(e), operation.Arg("id", e.ID(), "status", -1.0)))
		if loc.BBox.IsValid() {
			arg := element.Map{
				"parents": element.List{"lumber"},
				"mass":    e.Props().Float("mass", 0),
				"pos":     loc.Pos.List(),
				"bbox":    loc.BBox.List(),
			}
			if loc.Parent != nil {
				arg["loc"] = loc.Parent.ID()
			}
			res.Add(operation.New("create", self(e), operation.Args(arg)))
		}
		return nil
	}

	rng := w.Rand()
	axis := entity.Vector3{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1}
	if axis.Length() == 0 {
		axis.X = 1
	}
	orient := entity.AxisAngle(axis, math.Pi/2).Mul(loc.Orientation)
	arg := element.Map{
		"id":          e.ID(),
		"pos":         loc.Pos.List(),
		"orientation": orient.List(),
		"mode":        "felled",
	}
	if loc.Parent != nil {
		arg["loc"] = loc.Parent.ID()
	}
	res.Add(operation.New("move", self(e), operation.Args(arg)))
	return nil
}
