package config

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ChangeEvent represents a configuration change event
type ChangeEvent struct {
	File      string                 `json:"file"`
	Action    string                 `json:"action"` // create, modify, delete
	Config    map[string]interface{} `json:"config"`
	Timestamp time.Time              `json:"timestamp"`
}

// ChangeHandler is called when configuration changes
type ChangeHandler func(event ChangeEvent) error

// Manager watches a config directory and hot-reloads yaml/json files,
// notifying registered handlers on change.
type Manager struct {
	configDir string
	configs   map[string]map[string]interface{}
	handlers  map[string][]ChangeHandler
	watcher   *fsnotify.Watcher
	started   bool
	stopCh    chan struct{}
	logger    *zap.Logger
	mu        sync.RWMutex
}

// NewManager creates a configuration manager for a directory.
func NewManager(configDir string, logger *zap.Logger) (*Manager, error) {
	if configDir == "" {
		return nil, fmt.Errorf("config directory cannot be empty")
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Manager{
		configDir: configDir,
		configs:   make(map[string]map[string]interface{}),
		handlers:  make(map[string][]ChangeHandler),
		watcher:   watcher,
		stopCh:    make(chan struct{}),
		logger:    logger,
	}, nil
}

// Start loads all config files and begins watching for changes.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	if err := m.watcher.Add(m.configDir); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	if err := m.loadAllConfigs(); err != nil {
		return fmt.Errorf("failed to load initial configs: %w", err)
	}

	m.mu.Lock()
	m.started = true
	loaded := len(m.configs)
	m.mu.Unlock()

	go m.watchLoop()

	m.logger.Info("Configuration manager started",
		zap.String("config_dir", m.configDir),
		zap.Int("loaded_configs", loaded),
	)
	return nil
}

// Stop stops watching for configuration changes
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}
	close(m.stopCh)
	if err := m.watcher.Close(); err != nil {
		m.logger.Error("Error closing file watcher", zap.Error(err))
	}
	m.started = false
	return nil
}

// RegisterHandler registers a change handler for a specific config file
func (m *Manager) RegisterHandler(filename string, handler ChangeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[filename] = append(m.handlers[filename], handler)
}

// GetConfig returns a copy of the current configuration for a file.
func (m *Manager) GetConfig(filename string) (map[string]interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	config, exists := m.configs[filename]
	if !exists {
		return nil, false
	}
	result := make(map[string]interface{}, len(config))
	for k, v := range config {
		result[k] = v
	}
	return result, true
}

// ReloadConfig manually reloads a specific configuration file
func (m *Manager) ReloadConfig(filename string) error {
	return m.loadConfigFile(filepath.Join(m.configDir, filename), "manual_reload")
}

func (m *Manager) watchLoop() {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Watch loop panicked", zap.Any("panic", r))
		}
	}()

	for {
		select {
		case <-m.stopCh:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleWatchEvent(event)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (m *Manager) handleWatchEvent(event fsnotify.Event) {
	if !isConfigFile(event.Name) {
		return
	}
	filename := filepath.Base(event.Name)

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		m.handleFileRemoval(filename)
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		// Small delay to handle rapid successive writes
		time.Sleep(50 * time.Millisecond)
		action := "modify"
		if event.Op&fsnotify.Create != 0 {
			action = "create"
		}
		if err := m.loadConfigFile(event.Name, action); err != nil {
			m.logger.Error("Failed to load config file",
				zap.String("file", filename),
				zap.String("action", action),
				zap.Error(err),
			)
		}
	}
}

func (m *Manager) loadAllConfigs() error {
	return filepath.WalkDir(m.configDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isConfigFile(path) {
			return nil
		}
		return m.loadConfigFile(path, "initial_load")
	})
}

func (m *Manager) loadConfigFile(filePath, action string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	filename := filepath.Base(filePath)
	config := make(map[string]interface{})

	switch filepath.Ext(filename) {
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("failed to parse JSON config %s: %w", filename, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("failed to parse YAML config %s: %w", filename, err)
		}
	default:
		return fmt.Errorf("unsupported config format for %s", filename)
	}

	// Copy for handlers so they never share the stored map.
	configCopy := make(map[string]interface{}, len(config))
	for k, v := range config {
		configCopy[k] = v
	}

	m.mu.Lock()
	m.configs[filename] = config
	handlers := make([]ChangeHandler, len(m.handlers[filename]))
	copy(handlers, m.handlers[filename])
	m.mu.Unlock()

	m.notify(handlers, ChangeEvent{
		File:      filename,
		Action:    action,
		Config:    configCopy,
		Timestamp: time.Now(),
	})

	m.logger.Info("Configuration loaded",
		zap.String("filename", filename),
		zap.String("action", action),
		zap.Int("keys", len(config)),
	)
	return nil
}

func (m *Manager) handleFileRemoval(filename string) {
	m.mu.Lock()
	config := m.configs[filename]
	delete(m.configs, filename)
	handlers := make([]ChangeHandler, len(m.handlers[filename]))
	copy(handlers, m.handlers[filename])
	m.mu.Unlock()

	var configCopy map[string]interface{}
	if config != nil {
		configCopy = make(map[string]interface{}, len(config))
		for k, v := range config {
			configCopy[k] = v
		}
	}

	m.notify(handlers, ChangeEvent{
		File:      filename,
		Action:    "delete",
		Config:    configCopy,
		Timestamp: time.Now(),
	})

	m.logger.Info("Configuration file removed", zap.String("filename", filename))
}

// notify runs handlers asynchronously so a slow handler never blocks the
// watch loop; handler errors are logged, not propagated.
func (m *Manager) notify(handlers []ChangeHandler, event ChangeEvent) {
	for _, handler := range handlers {
		h := handler
		go func() {
			if err := h(event); err != nil {
				m.logger.Error("Configuration handler error",
					zap.String("filename", event.File),
					zap.String("action", event.Action),
					zap.Error(err),
				)
			}
		}()
	}
}

func isConfigFile(filename string) bool {
	ext := filepath.Ext(filename)
	return ext == ".json" || ext == ".yaml" || ext == ".yml"
}
