package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/l1jgo/islands/internal/grid"
)

// Keys shared by the frontier file and the legacy main config.
var (
	keyLastX = []string{"options", "general", "lastIslandX"}
	keyLastZ = []string{"options", "general", "lastIslandZ"}
)

type frontierFile struct {
	Options struct {
		General struct {
			LastIslandX *int `yaml:"lastIslandX,omitempty"`
			LastIslandZ *int `yaml:"lastIslandZ,omitempty"`
		} `yaml:"general"`
	} `yaml:"options"`
}

// YAMLStore keeps the frontier in a flat YAML document (lastIslandConfig.yml).
//
// When the document has no frontier yet, the keys are looked up in the legacy
// main config; if found they are moved into the frontier document.
// A document that fails to parse is copied aside as <file>.err and treated
// as empty.
type YAMLStore struct {
	mu         sync.Mutex
	path       string
	legacyPath string
	log        *zap.Logger
}

func NewYAMLStore(path, legacyPath string, log *zap.Logger) *YAMLStore {
	return &YAMLStore{path: path, legacyPath: legacyPath, log: log}
}

func (s *YAMLStore) Path() string { return s.path }

func (s *YAMLStore) Load(ctx context.Context) (grid.Cell, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc frontierFile
	raw, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.log.Info("no frontier file found, it will be created", zap.String("file", s.path))
	case err != nil:
		return grid.Cell{}, false, fmt.Errorf("read frontier %s: %w", s.path, err)
	default:
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			s.log.Error("unable to parse frontier file", zap.String("file", s.path), zap.Error(err))
			if werr := os.WriteFile(s.path+".err", raw, 0o644); werr != nil {
				s.log.Warn("unable to keep corrupt frontier file", zap.Error(werr))
			}
			doc = frontierFile{}
		}
	}

	g := doc.Options.General
	if g.LastIslandX != nil && g.LastIslandZ != nil {
		return grid.Cell{X: *g.LastIslandX, Z: *g.LastIslandZ}, true, nil
	}

	c, ok := s.migrateLegacy()
	return c, ok, nil
}

// migrateLegacy moves the frontier keys out of the legacy main config.
func (s *YAMLStore) migrateLegacy() (grid.Cell, bool) {
	if s.legacyPath == "" {
		return grid.Cell{}, false
	}
	raw, err := os.ReadFile(s.legacyPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("unable to read legacy config", zap.String("file", s.legacyPath), zap.Error(err))
		}
		return grid.Cell{}, false
	}
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		s.log.Warn("unable to parse legacy config", zap.String("file", s.legacyPath), zap.Error(err))
		return grid.Cell{}, false
	}
	x, okX := lookupInt(&root, keyLastX...)
	z, okZ := lookupInt(&root, keyLastZ...)
	if !okX || !okZ {
		return grid.Cell{}, false
	}
	c := grid.Cell{X: x, Z: z}

	if err := s.write(c); err != nil {
		// keep the legacy keys so the next start can try again
		s.log.Warn("unable to migrate legacy frontier", zap.Error(err))
		return c, true
	}
	removeKey(&root, keyLastX...)
	removeKey(&root, keyLastZ...)
	out, err := yaml.Marshal(&root)
	if err == nil {
		err = writeFileAtomic(s.legacyPath, out)
	}
	if err != nil {
		s.log.Warn("unable to strip frontier from legacy config", zap.String("file", s.legacyPath), zap.Error(err))
	}
	s.log.Info("migrated frontier from legacy config",
		zap.String("from", s.legacyPath), zap.String("to", s.path), zap.Stringer("frontier", c))
	return c, true
}

// Save overwrites the frontier document.
func (s *YAMLStore) Save(ctx context.Context, c grid.Cell) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(c)
}

func (s *YAMLStore) write(c grid.Cell) error {
	var doc frontierFile
	x, z := c.X, c.Z
	doc.Options.General.LastIslandX = &x
	doc.Options.General.LastIslandZ = &z
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encode frontier: %w", err)
	}
	if err := writeFileAtomic(s.path, out); err != nil {
		return fmt.Errorf("save frontier %s: %w", s.path, err)
	}
	return nil
}

func (s *YAMLStore) Close() error { return nil }

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ── yaml.Node helpers ──

func lookup(root *yaml.Node, path ...string) *yaml.Node {
	n := root
	if n != nil && n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	for _, key := range path {
		n = mappingValue(n, key)
		if n == nil {
			return nil
		}
	}
	return n
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func lookupInt(root *yaml.Node, path ...string) (int, bool) {
	n := lookup(root, path...)
	if n == nil || n.Kind != yaml.ScalarNode {
		return 0, false
	}
	var v int
	if err := n.Decode(&v); err != nil {
		return 0, false
	}
	return v, true
}

func removeKey(root *yaml.Node, path ...string) {
	parent := lookup(root, path[:len(path)-1]...)
	if parent == nil || parent.Kind != yaml.MappingNode {
		return
	}
	key := path[len(path)-1]
	for i := 0; i+1 < len(parent.Content); i += 2 {
		if parent.Content[i].Value == key {
			parent.Content = append(parent.Content[:i], parent.Content[i+2:]...)
			return
		}
	}
}
