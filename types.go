package testscope

import (
	"github.com/jward/testscope/internal/codemodel"
	"github.com/jward/testscope/internal/settings"
	"github.com/jward/testscope/internal/store"
)

// Public type aliases for the internal types that appear in the Engine and
// Analyzer APIs. External consumers use these names; no conversion is
// needed.

type Store = store.Store
type File = store.File

type Model = codemodel.Model
type Class = codemodel.Class
type Method = codemodel.Method
type Param = codemodel.Param
type ClassSet = codemodel.ClassSet

type Settings = settings.Settings

// DefaultSettings returns the settings used when no settings file exists.
func DefaultSettings() *Settings { return settings.Defaults() }

// LoadSettings reads a settings file on top of the defaults. A missing
// file yields the defaults.
func LoadSettings(path string) (*Settings, error) { return settings.Load(path) }
