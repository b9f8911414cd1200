// Package scenefixture is the reference hostapi.SceneHost implementation:
// an in-memory scene optionally seeded from a YAML fixture file. The real
// host application's scene graph is out of scope (spec.md §1); this gives
// the handlers and conformance tests something deterministic to run
// against, loaded the same tolerate-missing-file way the teacher's
// project.go loads project.yaml.
package scenefixture

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/scenebridge/blenderforge/internal/hostapi"
	"github.com/scenebridge/blenderforge/internal/wire"
)

// objectFixture is the YAML shape for one scene object.
type objectFixture struct {
	Name     string     `yaml:"name"`
	Type     string     `yaml:"type"`
	Location [3]float64 `yaml:"location"`
	Rotation [3]float64 `yaml:"rotation"`
	Scale    [3]float64 `yaml:"scale"`
	Visible  bool       `yaml:"visible"`
}

// fixtureFile is the YAML shape of a scene fixture document.
type fixtureFile struct {
	Name           string          `yaml:"name"`
	MaterialsCount int             `yaml:"materials_count"`
	FrameCurrent   int             `yaml:"frame_current"`
	FrameStart     int             `yaml:"frame_start"`
	FrameEnd       int             `yaml:"frame_end"`
	Objects        []objectFixture `yaml:"objects"`
}

// Scene is a mutable in-memory hostapi.SceneHost.
type Scene struct {
	mu             sync.RWMutex
	name           string
	materialsCount int
	frameCurrent   int
	frameStart     int
	frameEnd       int
	objects        map[string]hostapi.ObjectInfo
	order          []string // preserves fixture/insertion order for SceneSnapshot
}

// Empty returns a Scene with no objects — the default scene (spec.md §4.5
// "must tolerate an empty scene").
func Empty() *Scene {
	return &Scene{
		name:         "Untitled",
		frameStart:   1,
		frameEnd:     250,
		frameCurrent: 1,
		objects:      make(map[string]hostapi.ObjectInfo),
	}
}

// Load reads a YAML scene fixture from path. A missing file is not an
// error: it yields an Empty scene, mirroring project.go's
// tolerate-missing-config pattern.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return nil, fmt.Errorf("read scene fixture %s: %w", path, err)
	}

	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scene fixture %s: %w", path, err)
	}

	s := Empty()
	s.name = f.Name
	if s.name == "" {
		s.name = "Untitled"
	}
	s.materialsCount = f.MaterialsCount
	s.frameCurrent = f.FrameCurrent
	s.frameStart = f.FrameStart
	s.frameEnd = f.FrameEnd
	for _, o := range f.Objects {
		info := hostapi.ObjectInfo{
			Name: o.Name, Type: o.Type,
			Location: o.Location, Rotation: o.Rotation, Scale: o.Scale,
			Visible: o.Visible,
		}
		s.objects[o.Name] = info
		s.order = append(s.order, o.Name)
	}
	return s, nil
}

// Put inserts or replaces an object, appending to the snapshot order if new.
// Used by tests and by execute_code programs that create primitives through
// the in-process scene (see internal/handlers).
func (s *Scene) Put(info hostapi.ObjectInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[info.Name]; !exists {
		s.order = append(s.order, info.Name)
	}
	s.objects[info.Name] = info
}

// Delete removes an object by name, if present.
func (s *Scene) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// SceneSnapshot implements hostapi.SceneHost.
func (s *Scene) SceneSnapshot(ctx context.Context) (hostapi.SceneSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objs := make([]hostapi.ObjectInfo, 0, len(s.order))
	for _, name := range s.order {
		objs = append(objs, s.objects[name])
	}
	return hostapi.SceneSnapshot{
		Name:           s.name,
		Objects:        objs,
		MaterialsCount: s.materialsCount,
		FrameCurrent:   s.frameCurrent,
		FrameStart:     s.frameStart,
		FrameEnd:       s.frameEnd,
	}, nil
}

// ObjectInfo implements hostapi.SceneHost, returning a NotFound *wire.Error
// for unknown names (spec.md §4.5).
func (s *Scene) ObjectInfo(ctx context.Context, name string) (hostapi.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.objects[name]
	if !ok {
		return hostapi.ObjectInfo{}, wire.NewError(wire.KindNotFound, "object %q not found", name)
	}
	return info, nil
}
