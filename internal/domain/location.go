package domain

import "strings"

// Language is the active UI language. Only en and ar are shipped.
type Language string

const (
	LangEN Language = "en"
	LangAR Language = "ar"
)

// ParseLanguage picks a supported language from a ?lang= value or an
// Accept-Language header. Unknown values fall back to English.
func ParseLanguage(s string) Language {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "ar") {
		return LangAR
	}
	return LangEN
}

type LocalizedText struct {
	EN string `json:"en"`
	AR string `json:"ar"`
}

func (t LocalizedText) In(lang Language) string {
	if lang == LangAR && t.AR != "" {
		return t.AR
	}
	return t.EN
}

type LocalizedList struct {
	EN []string `json:"en"`
	AR []string `json:"ar"`
}

func (l LocalizedList) In(lang Language) []string {
	if lang == LangAR && len(l.AR) > 0 {
		return l.AR
	}
	return l.EN
}

// LocationRecord is one entry of the static destination catalog.
type LocationRecord struct {
	ID              string        `json:"id"`
	Name            LocalizedText `json:"name"`
	Region          LocalizedText `json:"region"`
	Description     LocalizedText `json:"description"`
	Neighborhoods   []string      `json:"neighborhoods"`
	Images          []string      `json:"images"`
	BestTimeToVisit LocalizedList `json:"bestTimeToVisit"`
}

// LocationView is a LocationRecord projected to a single language.
type LocationView struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Region          string   `json:"region"`
	Description     string   `json:"description"`
	Neighborhoods   []string `json:"neighborhoods"`
	Images          []string `json:"images"`
	BestTimeToVisit []string `json:"bestTimeToVisit"`
	Language        Language `json:"language"`
}
