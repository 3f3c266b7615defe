package loader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
)

// Common errors returned by the avatar extractor.
var (
	errNodeMultiParent = errors.New("node has multiple parents")
	errNodeCycle       = errors.New("node hierarchy contains a cycle or unreachable node")
	errChildRange      = errors.New("child node index out of range")
)

// avatarExtractorImpl is the implementation of the avatarExtractor interface.
type avatarExtractorImpl struct {
	parser gltfParser
}

// avatarExtractor converts a parsed glTF document into the engine's
// ImportedAvatar: the node hierarchy reordered parent-before-child, the
// skeleton from the document's skin, default morph weights, and the
// normalized spring-bone configuration from whichever VRM schema the asset
// carries. Internal to the loader package.
type avatarExtractor interface {
	// ExtractAvatar builds the complete ImportedAvatar.
	//
	// Parameters:
	//   - name: the avatar name to use when the asset metadata has none
	//
	// Returns:
	//   - *model.ImportedAvatar: the extracted avatar
	//   - error: error if the hierarchy is malformed or data is unreadable
	ExtractAvatar(name string) (*model.ImportedAvatar, error)
}

var _ avatarExtractor = &avatarExtractorImpl{}

// newAvatarExtractor creates an avatar extractor over a parsed document.
//
// Parameters:
//   - parser: the parser holding a loaded document
//
// Returns:
//   - avatarExtractor: the extractor
func newAvatarExtractor(parser gltfParser) avatarExtractor {
	return &avatarExtractorImpl{parser: parser}
}

func (e *avatarExtractorImpl) ExtractAvatar(name string) (*model.ImportedAvatar, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errors.New("no document loaded")
	}

	order, remap, err := orderNodes(doc)
	if err != nil {
		return nil, fmt.Errorf("node hierarchy: %w", err)
	}

	avatar := &model.ImportedAvatar{
		Name:         name,
		Nodes:        buildNodes(doc, order, remap),
		MorphWeights: extractMorphWeights(doc, remap),
	}

	if len(doc.Skins) > 0 {
		skeleton, err := e.extractSkeleton(0, remap)
		if err != nil {
			return nil, fmt.Errorf("skin 0: %w", err)
		}
		avatar.Skeleton = skeleton
	}

	if err := extractSprings(doc, remap, avatar); err != nil {
		return nil, fmt.Errorf("spring configuration: %w", err)
	}

	return avatar, nil
}

// orderNodes computes a parent-before-child ordering of every node in the
// document. glTF expresses the hierarchy as child lists in arbitrary node
// order; the engine's flat graph needs ancestors at lower indices, so the
// extractor walks breadth-first from the parentless roots and remaps every
// node reference through the resulting permutation.
//
// Returns the visit order (new index -> old index), the inverse remap
// (old index -> new index), and an error for multi-parented or cyclic nodes.
func orderNodes(doc *gltfDocument) ([]int, []int32, error) {
	n := len(doc.Nodes)
	parents := make([]int, n)
	for i := range parents {
		parents[i] = -1
	}

	for i := range doc.Nodes {
		for _, child := range doc.Nodes[i].Children {
			if child < 0 || child >= n {
				return nil, nil, fmt.Errorf("node %d: %w (%d)", i, errChildRange, child)
			}
			if parents[child] != -1 {
				return nil, nil, fmt.Errorf("node %d: %w", child, errNodeMultiParent)
			}
			parents[child] = i
		}
	}

	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if parents[i] == -1 {
			order = append(order, i)
		}
	}
	for head := 0; head < len(order); head++ {
		order = append(order, doc.Nodes[order[head]].Children...)
	}
	if len(order) != n {
		return nil, nil, errNodeCycle
	}

	remap := make([]int32, n)
	for newIdx, oldIdx := range order {
		remap[oldIdx] = int32(newIdx)
	}
	return order, remap, nil
}

// buildNodes materializes the reordered node list with decomposed local
// transforms and remapped parent references.
func buildNodes(doc *gltfDocument, order []int, remap []int32) []model.Node {
	nodes := make([]model.Node, len(order))
	for newIdx, oldIdx := range order {
		src := &doc.Nodes[oldIdx]
		nodes[newIdx] = model.Node{
			Name:        src.Name,
			ParentIndex: -1,
			Local:       nodeTransform(src),
		}
	}

	// Parent links come from the child lists a second time so the remap is
	// applied consistently.
	for newIdx, oldIdx := range order {
		for _, child := range doc.Nodes[oldIdx].Children {
			nodes[remap[child]].ParentIndex = int32(newIdx)
		}
	}
	return nodes
}

// extractMorphWeights collects default morph-target weights per mesh-bearing
// node, keyed by remapped node index. Node weights override mesh weights.
func extractMorphWeights(doc *gltfDocument, remap []int32) map[int32][]float32 {
	weights := make(map[int32][]float32)
	for i := range doc.Nodes {
		node := &doc.Nodes[i]
		if node.Mesh == nil {
			continue
		}

		var w []float32
		if len(node.Weights) > 0 {
			w = node.Weights
		} else if *node.Mesh >= 0 && *node.Mesh < len(doc.Meshes) {
			w = doc.Meshes[*node.Mesh].Weights
		}
		if len(w) == 0 {
			continue
		}
		weights[remap[i]] = append([]float32(nil), w...)
	}
	return weights
}

// extractSkeleton converts one skin into a Skeleton. Bones are ordered by
// their remapped node indices, which the reordered hierarchy guarantees is
// parent-before-child; each bone's parent is its nearest ancestor node that
// is itself a joint of the same skin.
func (e *avatarExtractorImpl) extractSkeleton(skinIndex int, remap []int32) (*model.Skeleton, error) {
	doc := e.parser.Document()
	skin := &doc.Skins[skinIndex]

	var inverseBind [][16]float32
	if skin.InverseBindMatrices != nil {
		var err error
		inverseBind, err = e.parser.ReadMat4Accessor(*skin.InverseBindMatrices)
		if err != nil {
			return nil, fmt.Errorf("failed to read inverse bind matrices: %w", err)
		}
	}

	type jointRef struct {
		oldNode  int
		newNode  int32
		jointIdx int
	}
	joints := make([]jointRef, 0, len(skin.Joints))
	for ji, nodeIdx := range skin.Joints {
		if nodeIdx < 0 || nodeIdx >= len(doc.Nodes) {
			return nil, fmt.Errorf("joint %d: invalid node index %d", ji, nodeIdx)
		}
		joints = append(joints, jointRef{oldNode: nodeIdx, newNode: remap[nodeIdx], jointIdx: ji})
	}
	// Node order is parent-before-child, so sorting joints by remapped node
	// index gives a topologically sorted bone array.
	for i := 1; i < len(joints); i++ {
		for j := i; j > 0 && joints[j-1].newNode > joints[j].newNode; j-- {
			joints[j-1], joints[j] = joints[j], joints[j-1]
		}
	}

	nodeToBone := make(map[int32]int32, len(joints))
	for bi, jr := range joints {
		nodeToBone[jr.newNode] = int32(bi)
	}

	// Parent lookup walks original node parents; rebuild that table once.
	oldParents := make([]int, len(doc.Nodes))
	for i := range oldParents {
		oldParents[i] = -1
	}
	for i := range doc.Nodes {
		for _, child := range doc.Nodes[i].Children {
			oldParents[child] = i
		}
	}

	skeleton := &model.Skeleton{
		Bones:           make([]model.Bone, len(joints)),
		BoneNameToIndex: make(map[string]int32, len(joints)),
	}
	for bi, jr := range joints {
		src := &doc.Nodes[jr.oldNode]
		bone := &skeleton.Bones[bi]

		bone.Name = src.Name
		if bone.Name == "" {
			bone.Name = fmt.Sprintf("bone_%d", bi)
		}
		bone.NodeIndex = jr.newNode
		bone.LocalTransform = nodeTransform(src)
		if jr.jointIdx < len(inverseBind) {
			bone.InverseBindMatrix = inverseBind[jr.jointIdx]
		} else {
			common.Identity(bone.InverseBindMatrix[:])
		}

		bone.ParentIndex = -1
		for p := oldParents[jr.oldNode]; p >= 0; p = oldParents[p] {
			if parentBone, ok := nodeToBone[remap[p]]; ok {
				bone.ParentIndex = parentBone
				break
			}
		}
		if bone.ParentIndex == -1 {
			skeleton.RootBoneIndices = append(skeleton.RootBoneIndices, int32(bi))
		}

		if _, exists := skeleton.BoneNameToIndex[bone.Name]; !exists {
			skeleton.BoneNameToIndex[bone.Name] = int32(bi)
		}
	}

	return skeleton, nil
}

// nodeTransform extracts the TRS transform of a glTF node, decomposing the
// matrix form when present.
func nodeTransform(node *gltfNode) model.Transform {
	if node.Matrix != nil {
		return decomposeMatrix(*node.Matrix)
	}

	t := model.IdentityTransform()
	if node.Translation != nil {
		t.Translation = *node.Translation
	}
	if node.Rotation != nil {
		t.Rotation = *node.Rotation
	}
	if node.Scale != nil {
		t.Scale = *node.Scale
	}
	return t
}

// decomposeMatrix splits a 4x4 column-major matrix into translation,
// rotation, and scale. Shear is not representable and is dropped.
func decomposeMatrix(m [16]float32) model.Transform {
	var t model.Transform

	t.Translation = [3]float32{m[12], m[13], m[14]}

	sx := common.Vec3Length([3]float32{m[0], m[1], m[2]})
	sy := common.Vec3Length([3]float32{m[4], m[5], m[6]})
	sz := common.Vec3Length([3]float32{m[8], m[9], m[10]})
	t.Scale = [3]float32{sx, sy, sz}

	if sx < 1e-4 {
		sx = 1
	}
	if sy < 1e-4 {
		sy = 1
	}
	if sz < 1e-4 {
		sz = 1
	}

	// QuatFromMatrix3 expects row-major; transpose while normalizing columns.
	t.Rotation = common.QuatFromMatrix3([9]float32{
		m[0] / sx, m[4] / sy, m[8] / sz,
		m[1] / sx, m[5] / sy, m[9] / sz,
		m[2] / sx, m[6] / sy, m[10] / sz,
	})

	return t
}
