package sketch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ============================================================
// File I/O
// ============================================================

// Файловый формат совпадает с сетевым конвертом эскиза, поэтому
// загруженный из файла эскиз проходит тот же путь преобразования и
// экспорта, что и собранный по сети.

// Load читает эскиз из JSON-файла.
func Load(path string) (Sketch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sketch{}, fmt.Errorf("read sketch file: %w", err)
	}
	var s Sketch
	if err := json.Unmarshal(data, &s); err != nil {
		return Sketch{}, fmt.Errorf("parse sketch file: %w", err)
	}
	return s, nil
}

// Save записывает эскиз в JSON-файл, создавая каталоги при необходимости.
func Save(s Sketch, path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sketch: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir sketch dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write sketch file: %w", err)
	}
	return nil
}
