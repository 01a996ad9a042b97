package worldsrc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
)

// YAMLDirSource читает миры из каталога: один файл <worldID>.yaml на мир.
// Версия мира - явное поле version, а при его отсутствии время изменения файла.
type YAMLDirSource struct {
	dir string

	mu    sync.Mutex
	cache map[string]cachedDocument
}

type cachedDocument struct {
	modTime int64
	doc     *WorldDocument
}

// NewYAMLDirSource создает источник поверх каталога dir
func NewYAMLDirSource(dir string) (*YAMLDirSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("каталог миров %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s не является каталогом", dir)
	}
	return &YAMLDirSource{dir: dir, cache: make(map[string]cachedDocument)}, nil
}

func (s *YAMLDirSource) path(worldID string) (string, error) {
	if worldID == "" || strings.ContainsAny(worldID, `/\`) || strings.Contains(worldID, "..") {
		return "", ErrWorldNotFound
	}
	for _, ext := range []string{".yaml", ".yml"} {
		p := filepath.Join(s.dir, worldID+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", ErrWorldNotFound
}

// document читает файл мира, повторно разбирая его только после изменения
func (s *YAMLDirSource) document(worldID string) (*WorldDocument, error) {
	p, err := s.path(worldID)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrWorldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("мир %s: %w", worldID, err)
	}
	modTime := info.ModTime().UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache[worldID]; ok && cached.modTime == modTime {
		return cached.doc, nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения мира %s: %w", worldID, err)
	}
	var doc WorldDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ошибка разбора мира %s: %w", worldID, err)
	}
	if doc.ID == "" {
		doc.ID = worldID
	}
	if doc.ID != worldID {
		return nil, fmt.Errorf("файл мира %s содержит id %s", worldID, doc.ID)
	}
	if doc.Version <= 0 {
		doc.Version = modTime
	}

	s.cache[worldID] = cachedDocument{modTime: modTime, doc: &doc}
	return &doc, nil
}

// LastModified возвращает версию мира
func (s *YAMLDirSource) LastModified(ctx context.Context, worldID string) (int64, error) {
	doc, err := s.document(worldID)
	if err != nil {
		return 0, err
	}
	return doc.Version, nil
}

// Load возвращает конфигурацию мира
func (s *YAMLDirSource) Load(ctx context.Context, worldID string) (*population.WorldConfig, error) {
	doc, err := s.document(worldID)
	if err != nil {
		return nil, err
	}
	return doc.ToConfig()
}

// Worlds перечисляет идентификаторы миров каталога
func (s *YAMLDirSource) Worlds() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}

// WriteDocument сохраняет документ мира в YAML-файл каталога dir
func WriteDocument(dir string, doc *WorldDocument) (string, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации мира %s: %w", doc.ID, err)
	}
	p := filepath.Join(dir, doc.ID+".yaml")
	if err := os.WriteFile(p, data, 0644); err != nil {
		return "", fmt.Errorf("ошибка записи мира %s: %w", doc.ID, err)
	}
	return p, nil
}

// Document возвращает разобранный документ мира
func (s *YAMLDirSource) Document(worldID string) (*WorldDocument, error) {
	return s.document(worldID)
}
