// package springbone implements the secondary-motion physics for VRM avatars:
// chains of point masses driven by Extended Position-Based Dynamics with
// distance constraints, primitive collision, and animation-driven kinematic
// roots. Chains are built once from a parsed spring-bone spec into flat,
// stable-indexed buffers and never resized during simulation.
package springbone

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"github.com/Carmen-Shannon/oxy-avatar/engine/scene"
	"go.uber.org/zap"
)

// Common errors returned by the chain builder.
var (
	errNoJoints        = errors.New("spring has no joints")
	errJointNodeRange  = errors.New("joint node index out of range")
	errJointNotChild   = errors.New("joint node is not a descendant of the previous joint")
	errGroupIndexRange = errors.New("collider group index out of range")
)

// virtualTailLength is the rest length of the synthetic tail bone appended to
// each VRM 0.x leaf joint, matching the 7 cm convention of that schema.
const virtualTailLength = 0.07

// maxColliderGroups bounds the collision-group bitmask width.
const maxColliderGroups = 32

// downDir is the fixed fallback bind direction when geometry is degenerate.
var downDir = [3]float32{0, -1, 0}

// Bone is one simulation particle of a spring chain. All fields except the
// position state are immutable after chain build.
type Bone struct {
	// NodeIndex is the scene node driven by this bone, or -1 for the virtual
	// tail bones appended to VRM 0.x leaf joints (simulated but never written
	// back to the graph).
	NodeIndex int32

	// ParentIndex is the buffer slot of the parent bone, or -1 for chain
	// roots. A parent slot always precedes its children, so a forward pass
	// over the buffer resolves parents before any child reads them.
	ParentIndex int32

	// RestLength is the bind-pose distance to the parent bone.
	RestLength float32

	// BindDir is the unit direction from the parent joint to this bone in the
	// parent node's local space at bind pose. Used to rebuild rotations in
	// the pose writer and as the push-out direction when a chain collapses.
	BindDir [3]float32

	// Stiffness is the bind-pose-return strength per second.
	Stiffness float32

	// Drag is the velocity damping coefficient in [0, 1].
	Drag float32

	// GravityPower scales effective gravity for this bone.
	GravityPower float32

	// GravityDir is the per-bone gravity direction (unit vector).
	GravityDir [3]float32

	// HitRadius is the bone's collision thickness.
	HitRadius float32

	// GroupMask is the collision-group bitmask; the bone collides with a
	// collider when GroupMask & (1 << collider group) != 0.
	GroupMask uint32
}

// chainSpan is one contiguous [start, end) range of bones forming a chain.
type chainSpan struct {
	start, end int
}

// ChainSet is the flat bone arena for one avatar: every chain's bones laid
// out contiguously, parent-before-child, with position state in parallel
// arrays. Indices are stable for the lifetime of the set; rebuilding fully
// replaces it.
type ChainSet struct {
	// Bones holds the immutable per-bone parameters.
	Bones []Bone

	// Curr and Prev are the world-space position state mutated every substep.
	Curr []([3]float32)
	Prev []([3]float32)

	// corr holds the previous substep's constraint correction per bone, the
	// displacement that projection and collision added on top of integration.
	// The integrator subtracts it back out of the implicit velocity so a fast
	// parent does not slingshot its children.
	corr []([3]float32)

	// stiffTarget is the per-frame world-space bind direction per bone,
	// refreshed from the graph before integration; the stiffness term pulls
	// each bone toward parent + stiffTarget * restLength.
	stiffTarget []([3]float32)

	// bindPose is the bind world position per bone, kept for Reset.
	bindPose []([3]float32)

	chains []chainSpan

	// roots holds the bone slot of each chain root; lastRootPos holds the
	// most recent valid animated position per root (held when input is stale).
	roots       []int
	lastRootPos []([3]float32)
}

// BoneCount returns the total number of bones across all chains.
func (cs *ChainSet) BoneCount() int {
	return len(cs.Bones)
}

// ChainCount returns the number of chains in the set.
func (cs *ChainSet) ChainCount() int {
	return len(cs.chains)
}

// RootSlots returns the bone slot of each chain root, ordered by chain.
func (cs *ChainSet) RootSlots() []int {
	return cs.roots
}

// BuildChains expands the normalized spring specs of an imported avatar into
// a ChainSet, computing rest lengths and bind directions from the graph's
// current (bind) pose. A malformed spring is logged and omitted; the
// remaining springs still simulate. Returns an error only when every spring
// fails or the input is empty.
//
// VRM 0.x springs (Expand set) carry only chain roots: each root's node
// subtree is traversed depth-first, branching into one chain per path, and a
// virtual tail bone is appended at every leaf. VRM 1.0 springs pass their
// explicit joint lists straight through.
//
// Parameters:
//   - avatar: the imported avatar carrying spring and collider group specs
//   - graph: the scene graph at bind pose
//   - log: structured logger for build diagnostics (must not be nil)
//
// Returns:
//   - *ChainSet: the constructed chain set
//   - error: error when no spring could be built
func BuildChains(avatar *model.ImportedAvatar, graph scene.Graph, log *zap.Logger) (*ChainSet, error) {
	if len(avatar.Springs) == 0 {
		return nil, errNoJoints
	}

	// Children adjacency for the VRM 0.x depth-first expansion.
	children := make([][]int32, graph.Count())
	for i := int32(0); int(i) < graph.Count(); i++ {
		if p := graph.ParentIndex(i); p >= 0 {
			children[p] = append(children[p], i)
		}
	}

	cs := &ChainSet{}
	built := 0

	for si, spring := range avatar.Springs {
		mask, err := groupMask(spring.ColliderGroupIndices, len(avatar.ColliderGroups))
		if err != nil {
			log.Warn("spring collider group out of range, groups ignored",
				zap.String("spring", spring.Name), zap.Int("index", si), zap.Error(err))
			mask = 0
		}

		var chainErr error
		if spring.Expand {
			chainErr = cs.appendExpanded(spring, mask, graph, children)
		} else {
			chainErr = cs.appendExplicit(spring, mask, graph)
		}
		if chainErr != nil {
			log.Error("spring chain omitted from simulation",
				zap.String("spring", spring.Name), zap.Int("index", si), zap.Error(chainErr))
			continue
		}
		built++
	}

	if built == 0 {
		return nil, fmt.Errorf("no valid spring chains: %d spring(s) all malformed", len(avatar.Springs))
	}

	cs.correctGravity(log)
	cs.Reset(graph)
	return cs, nil
}

// appendExplicit appends one chain from an explicit VRM 1.0 joint list.
func (cs *ChainSet) appendExplicit(spring model.SpringSpec, mask uint32, graph scene.Graph) error {
	if len(spring.Joints) == 0 {
		return errNoJoints
	}

	start := len(cs.Bones)
	for i, joint := range spring.Joints {
		if joint.NodeIndex < 0 || int(joint.NodeIndex) >= graph.Count() {
			cs.truncate(start)
			return fmt.Errorf("joint %d: %w", i, errJointNodeRange)
		}
		if i > 0 && !isDescendant(graph, joint.NodeIndex, spring.Joints[i-1].NodeIndex) {
			cs.truncate(start)
			return fmt.Errorf("joint %d (node %d): %w", i, joint.NodeIndex, errJointNotChild)
		}

		parent := int32(-1)
		if i > 0 {
			parent = int32(len(cs.Bones) - 1)
		}
		cs.appendBone(joint, parent, mask, graph)
	}

	cs.sealChain(start)
	return nil
}

// appendExpanded appends chains from a VRM 0.x bone group: every root joint's
// node subtree is walked depth-first into a single span, so branches share
// their ancestor slots and each leaf receives a virtual tail bone. The shared
// group parameters apply to every expanded joint.
func (cs *ChainSet) appendExpanded(spring model.SpringSpec, mask uint32, graph scene.Graph, children [][]int32) error {
	if len(spring.Joints) == 0 {
		return errNoJoints
	}

	appended := false
	for i, rootJoint := range spring.Joints {
		if rootJoint.NodeIndex < 0 || int(rootJoint.NodeIndex) >= graph.Count() {
			return fmt.Errorf("root joint %d: %w", i, errJointNodeRange)
		}

		start := len(cs.Bones)
		cs.appendBone(rootJoint, -1, mask, graph)
		cs.expandSubtree(rootJoint, int32(start), rootJoint.NodeIndex, mask, graph, children)
		cs.sealChain(start)
		appended = true
	}

	if !appended {
		return errNoJoints
	}
	return nil
}

// expandSubtree recursively appends the children of node as joints sharing
// the group's parameters, depth-first so every chain slot follows its parent
// slot. Leaves terminate with a virtual tail bone.
func (cs *ChainSet) expandSubtree(params model.SpringJointSpec, parentSlot, node int32, mask uint32, graph scene.Graph, children [][]int32) {
	kids := children[node]
	if len(kids) == 0 {
		cs.appendVirtualTail(params, parentSlot, mask, graph)
		return
	}

	for _, child := range kids {
		joint := params
		joint.NodeIndex = child
		slot := int32(len(cs.Bones))
		cs.appendBone(joint, parentSlot, mask, graph)
		cs.expandSubtree(params, slot, child, mask, graph, children)
	}
}

// appendBone appends one bone, deriving rest length and bind direction from
// the graph's bind pose.
func (cs *ChainSet) appendBone(joint model.SpringJointSpec, parentSlot int32, mask uint32, graph scene.Graph) {
	b := Bone{
		NodeIndex:    joint.NodeIndex,
		ParentIndex:  parentSlot,
		Stiffness:    clamp01(joint.Stiffness),
		Drag:         clamp01(joint.Drag),
		GravityPower: maxf(joint.GravityPower, 0),
		GravityDir:   common.Vec3Normalize(joint.GravityDir, downDir),
		HitRadius:    maxf(joint.HitRadius, 0),
		GroupMask:    mask,
	}

	world := graph.WorldPosition(joint.NodeIndex)

	if parentSlot >= 0 {
		parent := cs.Bones[parentSlot]
		parentWorld := cs.bindPose[parentSlot]
		b.RestLength = common.Vec3Distance(world, parentWorld)

		// Bind direction lives in the parent node's local space: for a direct
		// node child this is the joint's local translation. Degenerate offsets
		// inherit the parent's own bind direction, then fixed down.
		local := graph.Local(joint.NodeIndex).Translation
		fallback := parent.BindDir
		if common.Vec3LengthSq(fallback) < common.Vec3Epsilon {
			fallback = downDir
		}
		b.BindDir = common.Vec3Normalize(local, fallback)
	} else {
		b.BindDir = downDir
	}

	cs.Bones = append(cs.Bones, b)
	cs.bindPose = append(cs.bindPose, world)
	cs.Curr = append(cs.Curr, world)
	cs.Prev = append(cs.Prev, world)
	cs.corr = append(cs.corr, [3]float32{})
	cs.stiffTarget = append(cs.stiffTarget, downDir)
}

// appendVirtualTail appends the synthetic 7 cm tail bone of a VRM 0.x leaf,
// inheriting the leaf's parent-to-self direction (fixed down when degenerate).
func (cs *ChainSet) appendVirtualTail(params model.SpringJointSpec, parentSlot int32, mask uint32, graph scene.Graph) {
	parent := cs.Bones[parentSlot]
	parentWorld := cs.bindPose[parentSlot]

	worldDir := downDir
	if pp := parent.ParentIndex; pp >= 0 {
		worldDir = common.Vec3Normalize(common.Vec3Sub(parentWorld, cs.bindPose[pp]), downDir)
	}

	bindDir := parent.BindDir
	if common.Vec3LengthSq(bindDir) < common.Vec3Epsilon {
		bindDir = downDir
	}

	b := Bone{
		NodeIndex:    -1,
		ParentIndex:  parentSlot,
		RestLength:   virtualTailLength,
		BindDir:      bindDir,
		Stiffness:    clamp01(params.Stiffness),
		Drag:         clamp01(params.Drag),
		GravityPower: maxf(params.GravityPower, 0),
		GravityDir:   common.Vec3Normalize(params.GravityDir, downDir),
		HitRadius:    maxf(params.HitRadius, 0),
		GroupMask:    mask,
	}

	world := common.Vec3Add(parentWorld, common.Vec3Scale(worldDir, virtualTailLength))
	cs.Bones = append(cs.Bones, b)
	cs.bindPose = append(cs.bindPose, world)
	cs.Curr = append(cs.Curr, world)
	cs.Prev = append(cs.Prev, world)
	cs.corr = append(cs.corr, [3]float32{})
	cs.stiffTarget = append(cs.stiffTarget, downDir)
}

// sealChain records the [start, len) span as one chain and registers its root.
func (cs *ChainSet) sealChain(start int) {
	cs.chains = append(cs.chains, chainSpan{start: start, end: len(cs.Bones)})
	cs.roots = append(cs.roots, start)
	cs.lastRootPos = append(cs.lastRootPos, cs.bindPose[start])
}

// truncate discards bones appended since start after a failed chain build.
func (cs *ChainSet) truncate(start int) {
	cs.Bones = cs.Bones[:start]
	cs.bindPose = cs.bindPose[:start]
	cs.Curr = cs.Curr[:start]
	cs.Prev = cs.Prev[:start]
	cs.corr = cs.corr[:start]
	cs.stiffTarget = cs.stiffTarget[:start]
}

// correctGravity applies the documented leniency: a chain whose joints all
// resolve to zero gravity power is treated as an authoring oversight and
// corrected to 1.0, with a warning rather than a silent change.
func (cs *ChainSet) correctGravity(log *zap.Logger) {
	for ci, span := range cs.chains {
		allZero := true
		for i := span.start; i < span.end; i++ {
			if cs.Bones[i].GravityPower > 0 {
				allZero = false
				break
			}
		}
		if !allZero {
			continue
		}
		for i := span.start; i < span.end; i++ {
			cs.Bones[i].GravityPower = 1.0
		}
		log.Warn("chain has zero gravity power on every joint, corrected to 1.0",
			zap.Int("chain", ci), zap.Int("bones", span.end-span.start))
	}
}

// Reset reinitializes every bone's position state to the bind pose captured
// at build time and re-seeds the held root positions from the graph.
//
// Parameters:
//   - graph: the scene graph to read current root positions from (may be nil
//     to keep the bind-pose roots)
func (cs *ChainSet) Reset(graph scene.Graph) {
	copy(cs.Curr, cs.bindPose)
	copy(cs.Prev, cs.bindPose)
	for i := range cs.corr {
		cs.corr[i] = [3]float32{}
	}
	for ci, slot := range cs.roots {
		cs.lastRootPos[ci] = cs.bindPose[slot]
		if graph != nil {
			if node := cs.Bones[slot].NodeIndex; node >= 0 && int(node) < graph.Count() {
				cs.lastRootPos[ci] = graph.WorldPosition(node)
			}
		}
	}
}

// groupMask folds collider group indices into a 32-bit collision mask.
func groupMask(indices []int32, groupCount int) (uint32, error) {
	var mask uint32
	for _, gi := range indices {
		if gi < 0 || int(gi) >= groupCount || gi >= maxColliderGroups {
			return mask, fmt.Errorf("group %d of %d: %w", gi, groupCount, errGroupIndexRange)
		}
		mask |= 1 << uint(gi)
	}
	return mask, nil
}

// isDescendant reports whether node is a strict descendant of ancestor.
func isDescendant(graph scene.Graph, node, ancestor int32) bool {
	for p := graph.ParentIndex(node); p >= 0; p = graph.ParentIndex(p) {
		if p == ancestor {
			return true
		}
	}
	return false
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
