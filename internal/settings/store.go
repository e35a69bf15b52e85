package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/ini.v1"
)

// DefaultFilename is the settings file created next to the executable
const DefaultFilename = "settings.ini"

// DefaultPath returns settings.ini in the directory of the executable
func DefaultPath() string {
	exePath, err := os.Executable()
	if err != nil {
		return DefaultFilename
	}
	return filepath.Join(filepath.Dir(exePath), DefaultFilename)
}

// Store reads and writes Settings to an INI file.
// All writes are serialized; the process is the only writer.
type Store struct {
	path    string
	logger  *slog.Logger
	mu      sync.Mutex
	current Settings
}

// NewStore creates a store for the file at path. Nothing is read until Load.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:    path,
		logger:  logger.With("component", "settings"),
		current: Defaults(),
	}
}

// Path returns the settings file location
func (s *Store) Path() string {
	return s.path
}

// Current returns the last loaded or saved settings
func (s *Store) Current() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Load reads the settings file. It never fails: a missing or unreadable file,
// a missing section or a corrupt field yields defaults, which are written back.
func (s *Store) Load() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, repaired := s.read()
	s.current = loaded
	if repaired {
		if err := s.write(loaded); err != nil {
			s.logger.Error("failed to write default settings", "path", s.path, "error", err)
		} else {
			s.logger.Info("settings file repaired", "path", s.path)
		}
	}
	return loaded
}

func (s *Store) read() (Settings, bool) {
	cfg, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("settings file not found, using defaults", "path", s.path)
		} else {
			s.logger.Warn("failed to read settings file, using defaults", "path", s.path, "error", err)
		}
		return Defaults(), true
	}

	section, err := cfg.GetSection(SectionName)
	if err != nil {
		s.logger.Warn("settings section missing, using defaults", "path", s.path, "section", SectionName)
		return Defaults(), true
	}

	result := Defaults()
	repaired := false
	for _, field := range Fields {
		if !section.HasKey(field) {
			s.logger.Warn("settings field missing, using default", "field", field)
			repaired = true
			continue
		}
		next, err := result.With(field, section.Key(field).String())
		if err != nil {
			s.logger.Warn("settings field corrupt, using default", "field", field, "error", err)
			repaired = true
			continue
		}
		result = next
	}
	return result, repaired
}

// Save overwrites the settings file. On failure the previous file is left as it was.
func (s *Store) Save(st Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(st)
}

func (s *Store) save(st Settings) error {
	if err := st.Validate(); err != nil {
		s.logger.Error("refusing to save invalid settings", "error", err)
		return err
	}
	if err := s.write(st); err != nil {
		s.logger.Error("failed to save settings", "path", s.path, "error", err)
		return err
	}
	s.current = st
	s.logger.Debug("settings saved",
		"path", s.path,
		FieldLockPC, st.LockPC,
		FieldOffType, st.OffType.String(),
		FieldWakeOnKeyboard, st.WakeOnKeyboard,
	)
	return nil
}

// SetField updates one field from its string form and saves immediately
func (s *Store) SetField(field, value string) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.current.With(field, value)
	if err != nil {
		return s.current, err
	}
	if err := s.save(next); err != nil {
		return s.current, err
	}
	return next, nil
}

// write renders st into a temporary file next to the target and renames it into place
func (s *Store) write(st Settings) error {
	cfg := ini.Empty()
	section, err := cfg.NewSection(SectionName)
	if err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	values := st.Values()
	for _, field := range Fields {
		if _, err := section.NewKey(field, values[field]); err != nil {
			return fmt.Errorf("set %s: %w", field, err)
		}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.ini")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := cfg.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
