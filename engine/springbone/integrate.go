package springbone

import "github.com/Carmen-Shannon/oxy-avatar/common"

// substepEnv is the per-substep environment shared by every bone: forces and
// thresholds that do not vary across bones within one substep. Computed once
// per substep on the frame goroutine, read concurrently by chain tasks.
type substepEnv struct {
	dtSub   float32
	dtSubSq float32

	// gravityMag is |Params.Gravity|; per-bone direction and power reshape it.
	gravityMag float32

	// windForce is the evaluated sinusoidal wind plus any active impulse.
	windForce [3]float32

	// maxStep is the per-substep displacement clamp.
	maxStep float32

	// inertiaLow and inertiaHigh are the correction speed band converted to
	// per-substep displacement units.
	inertiaLow  float32
	inertiaHigh float32
}

// integrateChain advances every simulated bone of one chain span a single
// substep of velocity Verlet. Roots are kinematic and skipped. The pass
// mutates only Curr/Prev slots inside the span, so chains integrate in
// parallel without synchronization.
func integrateChain(cs *ChainSet, span chainSpan, env *substepEnv) {
	for i := span.start; i < span.end; i++ {
		b := &cs.Bones[i]
		p := b.ParentIndex
		if p < 0 {
			continue
		}

		curr := cs.Curr[i]
		vel := common.Vec3Sub(curr, cs.Prev[i])

		// Fast parent motion leaks into the child's implicit velocity via
		// last substep's constraint correction. Subtract that correction
		// back out, faded in over the inertia speed band so the small
		// corrections of normal settling dynamics pass through untouched.
		// The downward component is left alone so landings do not inject an
		// upward pop.
		if corr := cs.corr[i]; corr != ([3]float32{}) {
			factor := common.Smoothstep(env.inertiaLow, env.inertiaHigh, common.Vec3Length(corr))
			if factor > 0 {
				comp := common.Vec3Scale(corr, factor)
				if comp[1] < 0 {
					comp[1] = 0
				}
				vel = common.Vec3Sub(vel, comp)
			}
		}

		// Velocity is derived from the old previous position; save before the
		// new position lands.
		cs.Prev[i] = curr

		gravity := common.Vec3Scale(b.GravityDir, env.gravityMag*b.GravityPower)
		force := common.Vec3Add(gravity, env.windForce)

		drag := 1 - b.Drag
		next := common.Vec3Add(curr, common.Vec3Scale(vel, drag))
		next = common.Vec3Add(next, common.Vec3Scale(force, env.dtSubSq))

		// Stiffness pulls toward the animated bind direction at rest length
		// from the parent. This is the bind-pose-return term, separate from
		// the unconditional distance constraint.
		if b.Stiffness > 0 {
			target := common.Vec3Add(cs.Curr[p], common.Vec3Scale(cs.stiffTarget[i], b.RestLength))
			pull := common.Vec3Scale(common.Vec3Sub(target, curr), b.Stiffness*env.dtSub)
			next = common.Vec3Add(next, pull)
		}

		step := common.Vec3ClampLength(common.Vec3Sub(next, curr), env.maxStep)
		next = common.Vec3Add(curr, step)

		if !common.Vec3IsFinite(next) {
			next = curr
		}
		cs.Curr[i] = next
	}
}
