package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/CodeReclaimers/sketch-bridge/internal/cad"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port          string
	Environment   string
	ReadTimeout   int
	WriteTimeout  int
	PollInterval  int // секунды между циклами опроса адаптеров
	ProbeTimeout  int // секунды на один опрос адаптера
	LibraryDBPath string
	EndpointsFile string
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "3000"),
		Environment:   getEnv("ENV", "development"),
		ReadTimeout:   getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout:  getEnvAsInt("WRITE_TIMEOUT", 10),
		PollInterval:  getEnvAsInt("POLL_INTERVAL", 5),
		ProbeTimeout:  getEnvAsInt("PROBE_TIMEOUT", 3),
		LibraryDBPath: getEnv("LIBRARY_DB_PATH", "data/db/library.db"),
		EndpointsFile: getEnv("ENDPOINTS_FILE", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// ============================================================
// CAD Endpoints
// ============================================================

type endpointsFile struct {
	Systems []cad.Descriptor `yaml:"systems"`
}

// LoadEndpoints применяет переопределения из YAML-файла к встроенной
// таблице адаптеров. Пустой путь возвращает таблицу по умолчанию;
// переопределяются только непустые поля.
func LoadEndpoints(path string) ([]cad.Descriptor, error) {
	descriptors := cad.DefaultDescriptors()
	if path == "" {
		return descriptors, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read endpoints file: %w", err)
	}

	var f endpointsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse endpoints file: %w", err)
	}

	for _, override := range f.Systems {
		if _, err := cad.ParseSystem(string(override.System)); err != nil {
			return nil, fmt.Errorf("endpoints file: %w", err)
		}
		for i := range descriptors {
			if descriptors[i].System != override.System {
				continue
			}
			if override.Host != "" {
				descriptors[i].Host = override.Host
			}
			if override.Port != 0 {
				descriptors[i].Port = override.Port
			}
			if override.DisplayName != "" {
				descriptors[i].DisplayName = override.DisplayName
			}
		}
	}
	return descriptors, nil
}
