package profile

// Patch is a partial profile. Nil fields are left untouched by Merge.
//
// Photo uses a pointer to distinguish "unchanged" (nil) from "remove" (pointer
// to the empty string).
type Patch struct {
	Handle       *string
	Gender       *Gender
	Age          *int
	About        *string
	TargetGender *TargetGender
	AgeMin       *int
	AgeMax       *int
	Photo        *string
}

// Field names a single editable part of a profile.
type Field string

const (
	FieldGender       Field = "gender"
	FieldAge          Field = "age"
	FieldAbout        Field = "about"
	FieldTargetGender Field = "target gender"
	FieldAgeRange     Field = "age range"
	FieldPhoto        Field = "photo"
)

// EditableFields in the order the edit prompt offers them.
var EditableFields = []Field{FieldGender, FieldAge, FieldAbout, FieldTargetGender, FieldAgeRange, FieldPhoto}

// Merge overwrites fields of p with every field set in the patch.
func (p Profile) Merge(patch Patch) Profile {
	if patch.Handle != nil {
		p.Handle = *patch.Handle
	}
	if patch.Gender != nil {
		p.Gender = *patch.Gender
	}
	if patch.Age != nil {
		p.Age = *patch.Age
	}
	if patch.About != nil {
		p.About = *patch.About
	}
	if patch.TargetGender != nil {
		p.TargetGender = *patch.TargetGender
	}
	if patch.AgeMin != nil {
		p.AgeMin = *patch.AgeMin
	}
	if patch.AgeMax != nil {
		p.AgeMax = *patch.AgeMax
	}
	if patch.Photo != nil {
		p.Photo = *patch.Photo
	}
	return p
}

// Empty reports whether the patch changes nothing.
func (patch Patch) Empty() bool {
	return patch == Patch{}
}

// Complete reports whether the patch alone describes a full profile
// (everything except the optional handle and photo).
func (patch Patch) Complete() bool {
	return patch.Gender != nil && patch.Age != nil && patch.About != nil &&
		patch.TargetGender != nil && patch.AgeMin != nil && patch.AgeMax != nil
}
