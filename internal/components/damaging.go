package components

import (
	"slices"

	"stratum/internal/engine"
	"stratum/internal/world"
)

type PredicateKind uint8

const (
	PredicateAll PredicateKind = iota
	PredicateNone
	PredicateOnly
	PredicateExcept
)

// Predicate selects which collided entities a Damaging component may hit.
type Predicate struct {
	Kind   PredicateKind
	Entity engine.Entity
}

func Only(e engine.Entity) Predicate {
	return Predicate{Kind: PredicateOnly, Entity: e}
}

func Except(e engine.Entity) Predicate {
	return Predicate{Kind: PredicateExcept, Entity: e}
}

func (p Predicate) Accepts(e engine.Entity) bool {
	switch p.Kind {
	case PredicateAll:
		return true
	case PredicateOnly:
		return e == p.Entity
	case PredicateExcept:
		return e != p.Entity
	default:
		return false
	}
}

// DamagedID is either an entity or a tile.
type DamagedID struct {
	Entity engine.Entity
	Tile   world.TilePos
	IsTile bool
}

func DamagedEntity(e engine.Entity) DamagedID {
	return DamagedID{Entity: e}
}

func DamagedTile(pos world.TilePos) DamagedID {
	return DamagedID{Tile: pos, IsTile: true}
}

// Damaging deals damage to whatever its collider touches.
type Damaging struct {
	Damage    float32
	Predicate Predicate
	// TimesLeft counts remaining hits; negative is unlimited.
	TimesLeft int
	Knockback float32
	Source    engine.Entity
	// SameTileZ restricts tile damage to tiles on the collider's own Z layer.
	SameTileZ   bool
	IgnoreTiles bool

	alreadyDamaged []DamagedID
}

func NewDamaging(damage float32) Damaging {
	return Damaging{
		Damage:    damage,
		TimesLeft: -1,
		Knockback: 1,
		SameTileZ: true,
	}
}

// CanDamage reports whether id has not been hit yet and hits remain.
func (d *Damaging) CanDamage(id DamagedID) bool {
	if d.TimesLeft == 0 {
		return false
	}
	if id.IsTile && d.IgnoreTiles {
		return false
	}
	if !id.IsTile && (!d.Predicate.Accepts(id.Entity) || id.Entity == d.Source) {
		return false
	}
	return !slices.Contains(d.alreadyDamaged, id)
}

// Damaged records a hit on id.
func (d *Damaging) Damaged(id DamagedID) {
	d.alreadyDamaged = append(d.alreadyDamaged, id)
	if d.TimesLeft > 0 {
		d.TimesLeft--
	}
}

func (d *Damaging) Exhausted() bool {
	return d.TimesLeft == 0
}
