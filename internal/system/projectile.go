package system

import (
	"github.com/ironforge/outpost/internal/core/ecs"
	"github.com/ironforge/outpost/internal/core/event"
	coresys "github.com/ironforge/outpost/internal/core/system"
	"github.com/ironforge/outpost/internal/world"
)

// ProjectileSystem resolves projectiles whose impact tick arrived.
type ProjectileSystem struct{}

func (ProjectileSystem) Phase() coresys.Phase { return coresys.PhaseProjectile }

func (ProjectileSystem) Update(ctx *Context) {
	w := ctx.World
	w.Combat.Projectiles.Each(func(id ecs.EntityID, p *world.ProjectileRuntime) {
		if p.ImpactTick > ctx.Tick {
			return
		}
		w.Entities.Remove(id)
		w.Combat.Projectiles.Remove(id)
		if !w.Entities.Exists(p.Target) {
			return
		}
		if _, died := w.Entities.Damage(p.Target, p.Damage); !died {
			return
		}
		reward := 0
		if rt, ok := w.Combat.Enemies.Get(p.Target); ok {
			reward = rt.Reward
			w.Combat.Enemies.Remove(p.Target)
		}
		w.Economy.Currency += reward
		ctx.Emit(event.Event{Kind: event.EnemyDestroyed, Entity: p.Target, Value: reward})
	})
}
