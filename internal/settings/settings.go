// Package settings holds the persisted configuration of the LLM
// test-generation service: request limits, traversal depths, the chosen
// platform and model, the user token and the prompt templates.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Platforms.
const (
	PlatformOpenAI = "OpenAI"
	PlatformGrazie = "Grazie"
)

// TokenEnv overrides Settings.LLMUserToken when set.
const TokenEnv = "TESTSCOPE_LLM_TOKEN"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid settings")

// Settings is the on-disk settings document.
type Settings struct {
	Platform       string `toml:"platform" validate:"oneof=OpenAI Grazie"`
	Model          string `toml:"model"`
	LLMUserToken   string `toml:"llm_user_token"`
	ModelsEndpoint string `toml:"models_endpoint" validate:"omitempty,url"`

	MaxLLMRequest       int `toml:"max_llm_request" validate:"min=1,max=20"`
	MaxInputParamsDepth int `toml:"max_input_params_depth" validate:"min=1,max=5"`
	MaxPolyDepth        int `toml:"max_poly_depth" validate:"min=1,max=5"`

	ExcludedPrefix string `toml:"excluded_prefix"`
	TestableScript string `toml:"testable_script"`

	ClassPrompt  string `toml:"class_prompt"`
	MethodPrompt string `toml:"method_prompt"`
	LinePrompt   string `toml:"line_prompt"`
}

// Defaults returns the settings used when no file exists.
func Defaults() *Settings {
	return &Settings{
		Platform:            PlatformOpenAI,
		ModelsEndpoint:      "https://api.openai.com",
		MaxLLMRequest:       3,
		MaxInputParamsDepth: 2,
		MaxPolyDepth:        2,
		ExcludedPrefix:      "java.",
		ClassPrompt:         defaultClassPrompt,
		MethodPrompt:        defaultMethodPrompt,
		LinePrompt:          defaultLinePrompt,
	}
}

const (
	defaultClassPrompt  = "Generate unit tests in $LANGUAGE for $NAME to achieve 100% line coverage for this class.\nDont use @Before and @After test methods.\nMake tests as atomic as possible.\nAll tests should be for $TESTING_PLATFORM.\nIn case of mocking, use $MOCKING_FRAMEWORK. But, do not use mocking for all tests.\nName all methods according to the template - [MethodUnderTest][Scenario]Test, and use only English letters.\nThe source code of class under test is as follows:\n$CODE\n$METHODS\n$POLYMORPHISM"
	defaultMethodPrompt = "Generate unit tests in $LANGUAGE for $NAME to achieve 100% line coverage for this method.\nDont use @Before and @After test methods.\nMake tests as atomic as possible.\nAll tests should be for $TESTING_PLATFORM.\nIn case of mocking, use $MOCKING_FRAMEWORK. But, do not use mocking for all tests.\nName all methods according to the template - [MethodUnderTest][Scenario]Test, and use only English letters.\nThe source code of method under test is as follows:\n$CODE\n$METHODS\n$POLYMORPHISM"
	defaultLinePrompt   = "Generate unit tests in $LANGUAGE for line $NAME in the following code:\n$CODE\nDont use @Before and @After test methods.\nMake tests as atomic as possible.\nAll tests should be for $TESTING_PLATFORM.\nIn case of mocking, use $MOCKING_FRAMEWORK. But, do not use mocking for all tests.\nName all methods according to the template - [MethodUnderTest][Scenario]Test, and use only English letters.\n$METHODS\n$POLYMORPHISM"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate returns an error wrapping ErrInvalid with one entry per field
// that is out of range.
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	errs := []error{ErrInvalid}
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s=%v fails %s%s", keyForField(fe.StructField()), fe.Value(), fe.Tag(), paramSuffix(fe.Param())))
	}
	return errors.Join(errs...)
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

// DefaultPath returns ~/.config/testscope/settings.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "testscope", "settings.toml"), nil
}

// Load reads settings from path on top of Defaults and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	s := Defaults()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, s); err != nil {
			return nil, fmt.Errorf("failed to parse settings: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat settings: %w", err)
	}

	applyEnvOverrides(s)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save validates s and writes it to path with 0600 permissions, creating
// the parent directory if needed.
func Save(path string, s *Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}

	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(s); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	// WriteFile keeps the mode of a file that already exists.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict settings permissions: %w", err)
	}
	return nil
}

func applyEnvOverrides(s *Settings) {
	if v := os.Getenv(TokenEnv); v != "" {
		s.LLMUserToken = v
	}
}

// field binds a TOML key to its accessor for Get and Set.
type field struct {
	key string
	get func(*Settings) string
	set func(*Settings, string) error
}

func stringField(key string, p func(*Settings) *string) field {
	return field{
		key: key,
		get: func(s *Settings) string { return *p(s) },
		set: func(s *Settings, v string) error { *p(s) = v; return nil },
	}
}

func intField(key string, p func(*Settings) *int) field {
	return field{
		key: key,
		get: func(s *Settings) string { return strconv.Itoa(*p(s)) },
		set: func(s *Settings, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, key, v)
			}
			*p(s) = n
			return nil
		},
	}
}

var fields = []field{
	stringField("platform", func(s *Settings) *string { return &s.Platform }),
	stringField("model", func(s *Settings) *string { return &s.Model }),
	stringField("llm_user_token", func(s *Settings) *string { return &s.LLMUserToken }),
	stringField("models_endpoint", func(s *Settings) *string { return &s.ModelsEndpoint }),
	intField("max_llm_request", func(s *Settings) *int { return &s.MaxLLMRequest }),
	intField("max_input_params_depth", func(s *Settings) *int { return &s.MaxInputParamsDepth }),
	intField("max_poly_depth", func(s *Settings) *int { return &s.MaxPolyDepth }),
	stringField("excluded_prefix", func(s *Settings) *string { return &s.ExcludedPrefix }),
	stringField("testable_script", func(s *Settings) *string { return &s.TestableScript }),
	stringField("class_prompt", func(s *Settings) *string { return &s.ClassPrompt }),
	stringField("method_prompt", func(s *Settings) *string { return &s.MethodPrompt }),
	stringField("line_prompt", func(s *Settings) *string { return &s.LinePrompt }),
}

var structFieldKeys = map[string]string{
	"Platform":            "platform",
	"Model":               "model",
	"LLMUserToken":        "llm_user_token",
	"ModelsEndpoint":      "models_endpoint",
	"MaxLLMRequest":       "max_llm_request",
	"MaxInputParamsDepth": "max_input_params_depth",
	"MaxPolyDepth":        "max_poly_depth",
	"ExcludedPrefix":      "excluded_prefix",
	"TestableScript":      "testable_script",
}

func keyForField(name string) string {
	if k, ok := structFieldKeys[name]; ok {
		return k
	}
	return name
}

func lookupField(key string) (field, bool) {
	for _, f := range fields {
		if f.key == key {
			return f, true
		}
	}
	return field{}, false
}

// Keys returns every settable key in sorted order.
func Keys() []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of key as a string.
func (s *Settings) Get(key string) (string, error) {
	f, ok := lookupField(key)
	if !ok {
		return "", fmt.Errorf("%w: unknown key %q", ErrInvalid, key)
	}
	return f.get(s), nil
}

// Set parses value into key and revalidates. On failure s is left
// unchanged.
func (s *Settings) Set(key, value string) error {
	f, ok := lookupField(key)
	if !ok {
		return fmt.Errorf("%w: unknown key %q", ErrInvalid, key)
	}
	next := *s
	if err := f.set(&next, value); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*s = next
	return nil
}

// Redacted returns a copy of s with the token masked, for display.
func (s *Settings) Redacted() *Settings {
	c := *s
	if c.LLMUserToken != "" {
		c.LLMUserToken = "****"
	}
	return &c
}
