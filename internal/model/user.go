package model

type Language string

const (
	LanguageEnglish = Language("English")
	LanguagePidgin  = Language("Pidgin")
	LanguageIgbo    = Language("Igbo")
	LanguageYoruba  = Language("Yoruba")
	LanguageHausa   = Language("Hausa")
)

var Languages = []Language{LanguageEnglish, LanguagePidgin, LanguageIgbo, LanguageYoruba, LanguageHausa}

type Dialect string

const (
	DialectUK = Dialect("UK")
	DialectUS = Dialect("US")
)

// UserProfile tailors the assistant's language and jurisdiction. It is read when a
// session is created and never mutates a live session.
type UserProfile struct {
	Language Language `json:"language"`
	Dialect  Dialect  `json:"dialect"`
	Location string   `json:"location"`
}

func DefaultUserProfile() UserProfile {
	return UserProfile{
		Language: LanguageEnglish,
		Dialect:  DialectUK,
	}
}

func ParseLanguage(s string) (Language, bool) {
	for _, l := range Languages {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

func ParseDialect(s string) (Dialect, bool) {
	switch Dialect(s) {
	case DialectUK, DialectUS:
		return Dialect(s), true
	default:
		return "", false
	}
}

// Normalize fills unknown or empty fields with defaults.
func (p UserProfile) Normalize() UserProfile {
	def := DefaultUserProfile()
	if _, ok := ParseLanguage(string(p.Language)); !ok {
		p.Language = def.Language
	}
	if _, ok := ParseDialect(string(p.Dialect)); !ok {
		p.Dialect = def.Dialect
	}
	return p
}
