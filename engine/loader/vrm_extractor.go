package loader

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
)

// Common errors returned by the VRM extractor.
var (
	errSpringNodeRange   = errors.New("spring node index out of range")
	errColliderNodeRange = errors.New("collider node index out of range")
	errColliderRefRange  = errors.New("collider reference out of range")
	errColliderShape     = errors.New("collider has no recognized shape")
)

// extractSprings normalizes whichever VRM spring-bone schema the document
// carries into the avatar's Springs and ColliderGroups. An asset with
// neither extension is a plain glTF and gets no springs, which is not an
// error. When both are present the 1.0 extension wins.
func extractSprings(doc *gltfDocument, remap []int32, avatar *model.ImportedAvatar) error {
	if raw, ok := doc.Extensions[vrm1SpringExtensionName]; ok {
		return extractVRM1Springs(raw, remap, avatar)
	}
	if raw, ok := doc.Extensions[vrm0ExtensionName]; ok {
		return extractVRM0Springs(raw, remap, avatar)
	}
	return nil
}

// extractVRM0Springs normalizes the 0.x secondaryAnimation block. Bone
// groups become Expand springs with one joint per chain-root node carrying
// the group's shared parameters; collider groups are spheres only in this
// schema. The avatar title, when present, replaces the fallback name.
func extractVRM0Springs(raw json.RawMessage, remap []int32, avatar *model.ImportedAvatar) error {
	var ext vrm0Extension
	if err := json.Unmarshal(raw, &ext); err != nil {
		return fmt.Errorf("VRM extension: %w", err)
	}

	if ext.Meta.Title != "" {
		avatar.Name = ext.Meta.Title
	}
	avatar.SpecVersion = model.SpringSpecVRM0
	if ext.SecondaryAnimation == nil {
		return nil
	}
	sa := ext.SecondaryAnimation

	avatar.ColliderGroups = make([]model.ColliderGroupSpec, 0, len(sa.ColliderGroups))
	for gi, group := range sa.ColliderGroups {
		if group.Node < 0 || group.Node >= len(remap) {
			return fmt.Errorf("collider group %d: %w (%d)", gi, errColliderNodeRange, group.Node)
		}
		spec := model.ColliderGroupSpec{
			Colliders: make([]model.ColliderSpec, 0, len(group.Colliders)),
		}
		for _, c := range group.Colliders {
			spec.Colliders = append(spec.Colliders, model.ColliderSpec{
				NodeIndex: remap[group.Node],
				Kind:      model.ColliderShapeSphere,
				Offset:    c.Offset.array(),
				Radius:    c.Radius,
			})
		}
		avatar.ColliderGroups = append(avatar.ColliderGroups, spec)
	}

	avatar.Springs = make([]model.SpringSpec, 0, len(sa.BoneGroups))
	for bi, group := range sa.BoneGroups {
		spring := model.SpringSpec{
			Name:            group.Comment,
			CenterNodeIndex: remapOptional(group.Center, remap),
			Expand:          true,
		}
		if spring.Name == "" {
			spring.Name = fmt.Sprintf("boneGroup_%d", bi)
		}

		for _, node := range group.Bones {
			if node < 0 || node >= len(remap) {
				return fmt.Errorf("bone group %d: %w (%d)", bi, errSpringNodeRange, node)
			}
			spring.Joints = append(spring.Joints, model.SpringJointSpec{
				NodeIndex:    remap[node],
				Stiffness:    group.Stiffiness,
				Drag:         group.DragForce,
				GravityPower: group.GravityPower,
				GravityDir:   group.GravityDir.array(),
				HitRadius:    group.HitRadius,
			})
		}
		for _, cg := range group.ColliderGroups {
			spring.ColliderGroupIndices = append(spring.ColliderGroupIndices, int32(cg))
		}
		avatar.Springs = append(avatar.Springs, spring)
	}

	return nil
}

// extractVRM1Springs normalizes the VRMC_springBone 1.0 extension. The flat
// collider list is regrouped under its collider groups, resolving each
// collider's shape union (plus the extended-collider plane) into one
// ColliderSpec. Capsule tails are converted to offsets from the head so the
// engine's single second-endpoint convention (node transform of
// offset + tail) holds for both schemas.
func extractVRM1Springs(raw json.RawMessage, remap []int32, avatar *model.ImportedAvatar) error {
	var ext vrm1SpringExtension
	if err := json.Unmarshal(raw, &ext); err != nil {
		return fmt.Errorf("VRMC_springBone extension: %w", err)
	}

	avatar.SpecVersion = model.SpringSpecVRM1

	resolved := make([]model.ColliderSpec, len(ext.Colliders))
	for i, c := range ext.Colliders {
		if c.Node < 0 || c.Node >= len(remap) {
			return fmt.Errorf("collider %d: %w (%d)", i, errColliderNodeRange, c.Node)
		}
		spec, err := resolveVRM1Collider(&c)
		if err != nil {
			return fmt.Errorf("collider %d: %w", i, err)
		}
		spec.NodeIndex = remap[c.Node]
		resolved[i] = spec
	}

	avatar.ColliderGroups = make([]model.ColliderGroupSpec, 0, len(ext.ColliderGroups))
	for gi, group := range ext.ColliderGroups {
		spec := model.ColliderGroupSpec{
			Name:      group.Name,
			Colliders: make([]model.ColliderSpec, 0, len(group.Colliders)),
		}
		for _, ci := range group.Colliders {
			if ci < 0 || ci >= len(resolved) {
				return fmt.Errorf("collider group %d: %w (%d)", gi, errColliderRefRange, ci)
			}
			spec.Colliders = append(spec.Colliders, resolved[ci])
		}
		avatar.ColliderGroups = append(avatar.ColliderGroups, spec)
	}

	avatar.Springs = make([]model.SpringSpec, 0, len(ext.Springs))
	for si, spring := range ext.Springs {
		spec := model.SpringSpec{
			Name:            spring.Name,
			CenterNodeIndex: -1,
		}
		if spec.Name == "" {
			spec.Name = fmt.Sprintf("spring_%d", si)
		}
		if spring.Center != nil {
			spec.CenterNodeIndex = remapOptional(*spring.Center, remap)
		}

		for ji, joint := range spring.Joints {
			if joint.Node < 0 || joint.Node >= len(remap) {
				return fmt.Errorf("spring %d joint %d: %w (%d)", si, ji, errSpringNodeRange, joint.Node)
			}
			spec.Joints = append(spec.Joints, model.SpringJointSpec{
				NodeIndex:    remap[joint.Node],
				Stiffness:    joint.Stiffness,
				Drag:         joint.DragForce,
				GravityPower: joint.GravityPower,
				GravityDir:   joint.GravityDir,
				HitRadius:    joint.HitRadius,
			})
		}
		for _, cg := range spring.ColliderGroups {
			spec.ColliderGroupIndices = append(spec.ColliderGroupIndices, int32(cg))
		}
		avatar.Springs = append(avatar.Springs, spec)
	}

	return nil
}

// resolveVRM1Collider picks the collider's single shape. The extended
// collider extension, when present, overrides the base shape (the base is
// the fallback for loaders that do not read the extension).
func resolveVRM1Collider(c *vrm1Collider) (model.ColliderSpec, error) {
	if raw, ok := c.Extensions[vrm1ExtendedColliderName]; ok {
		var extended vrm1ExtendedCollider
		if err := json.Unmarshal(raw, &extended); err == nil && extended.Shape.Plane != nil {
			return model.ColliderSpec{
				Kind:   model.ColliderShapePlane,
				Offset: extended.Shape.Plane.Offset,
				Normal: extended.Shape.Plane.Normal,
			}, nil
		}
	}

	switch {
	case c.Shape.Sphere != nil:
		return model.ColliderSpec{
			Kind:   model.ColliderShapeSphere,
			Offset: c.Shape.Sphere.Offset,
			Radius: c.Shape.Sphere.Radius,
		}, nil
	case c.Shape.Capsule != nil:
		return model.ColliderSpec{
			Kind:   model.ColliderShapeCapsule,
			Offset: c.Shape.Capsule.Offset,
			Tail:   common.Vec3Sub(c.Shape.Capsule.Tail, c.Shape.Capsule.Offset),
			Radius: c.Shape.Capsule.Radius,
		}, nil
	default:
		return model.ColliderSpec{}, errColliderShape
	}
}

// remapOptional remaps a node index that may be the -1 sentinel.
func remapOptional(node int, remap []int32) int32 {
	if node < 0 || node >= len(remap) {
		return -1
	}
	return remap[node]
}
