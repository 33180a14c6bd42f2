package profile

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/apperr"
)

// Age limits shared by the profile's own age and the preferred age range.
const (
	MinAge         = 13
	MaxAge         = 120
	MaxAboutLength = 1000
)

// Gender is the profile owner's gender
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// TargetGender is the gender the owner wants to be matched with
type TargetGender string

const (
	TargetMale   TargetGender = "male"
	TargetFemale TargetGender = "female"
	TargetAny    TargetGender = "any"
)

// Button labels offered by the gender prompts.
var (
	GenderChoices       = []string{"Male", "Female", "Other"}
	TargetGenderChoices = []string{"Male", "Female", "Any"}
)

// Profile is a committed user profile. Drafts never take this shape; they live
// in a Patch until a flow commits.
type Profile struct {
	Identity     string       `json:"identity"`
	Handle       string       `json:"handle,omitempty"`
	Gender       Gender       `json:"gender"`
	Age          int          `json:"age"`
	About        string       `json:"about"`
	TargetGender TargetGender `json:"target_gender"`
	AgeMin       int          `json:"age_min"`
	AgeMax       int          `json:"age_max"`
	Photo        string       `json:"photo,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Valid reports whether g is one of the closed enumeration values.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

func (t TargetGender) Valid() bool {
	switch t {
	case TargetMale, TargetFemale, TargetAny:
		return true
	}
	return false
}

// Accepts reports whether a candidate of gender g satisfies this preference.
func (t TargetGender) Accepts(g Gender) bool {
	return t == TargetAny || string(t) == string(g)
}

// Label is the capitalized form used in rendered cards.
func (g Gender) Label() string       { return capitalize(string(g)) }
func (t TargetGender) Label() string { return capitalize(string(t)) }

// Validate checks every invariant of a committed profile.
func (p Profile) Validate() error {
	switch {
	case strings.TrimSpace(p.Identity) == "":
		return apperr.Validation("profile identity is required")
	case p.Handle != "" && !handlePattern.MatchString(p.Handle):
		return apperr.Validation("handle may only contain letters, digits and underscores")
	case !p.Gender.Valid():
		return apperr.Validation("gender must be male, female or other")
	case !ageInBounds(p.Age):
		return apperr.Validation("age must be between 13 and 120")
	case strings.TrimSpace(p.About) == "":
		return apperr.Validation("about must not be empty")
	case !p.TargetGender.Valid():
		return apperr.Validation("target gender must be male, female or any")
	case !ageInBounds(p.AgeMin) || !ageInBounds(p.AgeMax) || p.AgeMin > p.AgeMax:
		return apperr.Validation("age range must be min-max within 13-120")
	}
	return nil
}

// ParseGender accepts the enumeration case-insensitively, plus one-letter aliases.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return GenderMale, nil
	case "female", "f":
		return GenderFemale, nil
	case "other", "o":
		return GenderOther, nil
	}
	return "", apperr.Validation("Please choose one of the offered options: Male, Female or Other.")
}

func ParseTargetGender(s string) (TargetGender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return TargetMale, nil
	case "female", "f":
		return TargetFemale, nil
	case "any", "a":
		return TargetAny, nil
	}
	return "", apperr.Validation("Please choose one of the offered options: Male, Female or Any.")
}

// ParseAge parses a whole number of years in [MinAge, MaxAge].
func ParseAge(s string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, apperr.Validation("Please enter a number.")
	}
	if !ageInBounds(age) {
		return 0, apperr.Validation("Please enter a valid age (13 to 120).")
	}
	return age, nil
}

// ParseAgeRange parses "min-max", e.g. "20-30".
func ParseAgeRange(s string) (minAge, maxAge int, err error) {
	bad := apperr.Validation("Please enter a valid range in the format 20-30.")
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, 0, bad
	}
	minAge, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	maxAge, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, bad
	}
	if !ageInBounds(minAge) || !ageInBounds(maxAge) || minAge > maxAge {
		return 0, 0, bad
	}
	return minAge, maxAge, nil
}

// ParseAbout trims the text and enforces the length bounds.
func ParseAbout(s string) (string, error) {
	about := strings.TrimSpace(s)
	if about == "" {
		return "", apperr.Validation("Please write a few words about yourself.")
	}
	if utf8.RuneCountInString(about) > MaxAboutLength {
		return "", apperr.Validation("That is too long, please keep it under 1000 characters.")
	}
	return about, nil
}

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,32}$`)

// ParseHandle validates a public handle. With requireAt the input must be
// written as @name. The result never carries the @.
func ParseHandle(s string, requireAt bool) (string, error) {
	s = strings.TrimSpace(s)
	if requireAt && !strings.HasPrefix(s, "@") {
		return "", apperr.Validation("Please enter the username in the format @username.")
	}
	h := strings.TrimPrefix(s, "@")
	if !handlePattern.MatchString(h) {
		return "", apperr.Validation("Please enter the username in the format @username.")
	}
	return h, nil
}

// NormalizeHandle is the case-insensitive lookup key for a handle.
func NormalizeHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}

func ageInBounds(age int) bool {
	return age >= MinAge && age <= MaxAge
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
