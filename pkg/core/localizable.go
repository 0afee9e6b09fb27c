// pkg/core/localizable.go
package core

// DefaultLang is the language key used for untranslated text.
const DefaultLang = "default"

// LocalizableString maps a language code to text.
type LocalizableString map[string]string

// NewLocalizableString returns a string holding s in the default language.
func NewLocalizableString(s string) LocalizableString {
	if s == "" {
		return LocalizableString{}
	}
	return LocalizableString{DefaultLang: s}
}

// Default returns the default language text.
func (s LocalizableString) Default() string {
	return s[DefaultLang]
}

// Get returns the text for lang, falling back to the default language.
func (s LocalizableString) Get(lang string) string {
	if v, ok := s[lang]; ok && v != "" {
		return v
	}
	return s[DefaultLang]
}

// Empty reports whether no language holds any text.
func (s LocalizableString) Empty() bool {
	for _, v := range s {
		if v != "" {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s LocalizableString) Clone() LocalizableString {
	if s == nil {
		return nil
	}
	out := make(LocalizableString, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
