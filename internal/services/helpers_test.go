package services

import (
	"fmt"
	"strings"
	"sync"

	"foodgram/internal/storage"
)

// memImages 内存版图片存储
type memImages struct {
	mu    sync.Mutex
	n     int
	files map[string]string
}

func newMemImages() *memImages {
	return &memImages{files: map[string]string{}}
}

func (m *memImages) Save(dataURL, dir string) (string, error) {
	if !strings.HasPrefix(dataURL, "data:image/") {
		return "", storage.ErrInvalidImage
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	rel := fmt.Sprintf("%s/%d.png", dir, m.n)
	m.files[rel] = dataURL
	return rel, nil
}

func (m *memImages) Delete(rel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, rel)
	return nil
}

func (m *memImages) has(rel string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[rel]
	return ok
}

const testImage = "data:image/png;base64,iVBORw0KGgo="
