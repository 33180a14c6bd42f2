package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/apperr"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/profile"
)

// errEndFlow is returned by a validator when the input itself asks to leave
// the flow, e.g. choosing Cancel in the edit menu.
var errEndFlow = errors.New("end flow")

type key struct {
	state State
	kind  InputKind
}

// transition stores a valid input into the session and names the next state.
// apply works on a copy, so a failed apply leaves the stored session as it was.
// check runs after apply and may consult the stores.
type transition struct {
	apply func(s *Session, in Input) error
	check func(ctx context.Context, m *Machine, s *Session) error
	next  State
}

var table = map[key]transition{
	{StateChooseGender, InputText}: {apply: setGender, next: StateEnterAge},
	{StateEnterAge, InputText}:     {apply: setAge, next: StateEnterAbout},
	{StateEnterAbout, InputText}:   {apply: setAbout, next: StateChooseTargetGender},
	{StateChooseTargetGender, InputText}: {
		apply: setTargetGender, next: StateEnterAgeRange,
	},
	{StateEnterAgeRange, InputText}: {apply: setAgeRange, next: StateUploadPhoto},
	{StateUploadPhoto, InputPhoto}:  {apply: setPhoto, next: stateCommit},
	{StateUploadPhoto, InputSkip}:   {apply: clearPhoto, next: stateCommit},

	{StateChooseField, InputText}: {apply: chooseField, next: StateFieldValue},
	{StateFieldValue, InputText}:  {apply: setFieldText, next: stateCommit},
	{StateFieldValue, InputPhoto}: {apply: setFieldPhoto, next: stateCommit},
	{StateFieldValue, InputSkip}:  {apply: skipField, next: stateCommit},

	{StateChooseTarget, InputText}: {apply: chooseTarget, check: targetExists, next: StateEnterText},
	{StateEnterText, InputText}:    {apply: setReviewText, next: stateCommit},
}

// first is the entry state of each flow.
var first = map[Flow]State{
	FlowCreate: StateChooseGender,
	FlowEdit:   StateChooseField,
	FlowReview: StateChooseTarget,
}

func lookup(state State, kind InputKind) (transition, bool) {
	t, ok := table[key{state, kind}]
	return t, ok
}

func setGender(s *Session, in Input) error {
	g, err := profile.ParseGender(in.Text)
	if err != nil {
		return err
	}
	s.Draft.Gender = &g
	return nil
}

func setAge(s *Session, in Input) error {
	age, err := profile.ParseAge(in.Text)
	if err != nil {
		return err
	}
	s.Draft.Age = &age
	return nil
}

func setAbout(s *Session, in Input) error {
	about, err := profile.ParseAbout(in.Text)
	if err != nil {
		return err
	}
	s.Draft.About = &about
	return nil
}

func setTargetGender(s *Session, in Input) error {
	t, err := profile.ParseTargetGender(in.Text)
	if err != nil {
		return err
	}
	s.Draft.TargetGender = &t
	return nil
}

func setAgeRange(s *Session, in Input) error {
	lo, hi, err := profile.ParseAgeRange(in.Text)
	if err != nil {
		return err
	}
	s.Draft.AgeMin, s.Draft.AgeMax = &lo, &hi
	return nil
}

func setPhoto(s *Session, in Input) error {
	token := strings.TrimSpace(in.Photo)
	if token == "" {
		return apperr.Validation("Please send a photo or press Skip.")
	}
	s.Draft.Photo = &token
	return nil
}

func clearPhoto(s *Session, _ Input) error {
	none := ""
	s.Draft.Photo = &none
	return nil
}

func chooseField(s *Session, in Input) error {
	choice := strings.ToLower(strings.TrimSpace(in.Text))
	if choice == "cancel" {
		return errEndFlow
	}
	for _, f := range profile.EditableFields {
		if choice == string(f) {
			s.EditField = f
			return nil
		}
	}
	return apperr.Validation("Please choose one of the offered fields.")
}

func setFieldText(s *Session, in Input) error {
	switch s.EditField {
	case profile.FieldGender:
		return setGender(s, in)
	case profile.FieldAge:
		return setAge(s, in)
	case profile.FieldAbout:
		return setAbout(s, in)
	case profile.FieldTargetGender:
		return setTargetGender(s, in)
	case profile.FieldAgeRange:
		return setAgeRange(s, in)
	case profile.FieldPhoto:
		return apperr.Validation("Please send a photo, or press Skip to remove the current one.")
	}
	return fmt.Errorf("unknown edit field %q", s.EditField)
}

func setFieldPhoto(s *Session, in Input) error {
	if s.EditField != profile.FieldPhoto {
		return apperr.Validation("Please answer with text.")
	}
	return setPhoto(s, in)
}

func skipField(s *Session, in Input) error {
	if s.EditField != profile.FieldPhoto {
		return apperr.Validation("Please answer with text.")
	}
	return clearPhoto(s, in)
}

func chooseTarget(s *Session, in Input) error {
	h, err := profile.ParseHandle(in.Text, true)
	if err != nil {
		return err
	}
	s.ReviewTarget = h
	return nil
}

func targetExists(ctx context.Context, m *Machine, s *Session) error {
	p, err := m.profiles.GetByHandle(ctx, s.ReviewTarget)
	if err != nil {
		return err
	}
	if p.Identity == s.Identity {
		return apperr.Validation("You cannot review your own profile.")
	}
	s.ReviewTarget = p.Handle
	return nil
}

func setReviewText(s *Session, in Input) error {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return apperr.Validation("Please write the review text.")
	}
	s.ReviewText = text
	return nil
}

// wrongKind is the reprompt message for an input kind the state has no row for.
func wrongKind(state State) error {
	if state == StateUploadPhoto {
		return apperr.Validation("Please send a photo or press Skip.")
	}
	return apperr.Validation("Please answer with text.")
}

var fieldLabels = map[profile.Field]string{
	profile.FieldGender:       "Gender",
	profile.FieldAge:          "Age",
	profile.FieldAbout:        "About",
	profile.FieldTargetGender: "Target gender",
	profile.FieldAgeRange:     "Age range",
	profile.FieldPhoto:        "Photo",
}

func promptFor(s Session) Prompt {
	switch s.State {
	case StateChooseGender:
		return Prompt{Text: "What is your gender?", Choices: profile.GenderChoices}
	case StateEnterAge:
		return Prompt{Text: "How old are you?"}
	case StateEnterAbout:
		return Prompt{Text: "Tell us a little about yourself."}
	case StateChooseTargetGender:
		return Prompt{Text: "Who would you like to meet?", Choices: profile.TargetGenderChoices}
	case StateEnterAgeRange:
		return Prompt{Text: "What age range are you looking for? For example 20-30."}
	case StateUploadPhoto:
		return Prompt{Text: "Send a photo for your profile, or press Skip.", Choices: []string{"Skip"}}
	case StateChooseField:
		choices := make([]string, 0, len(profile.EditableFields)+1)
		for _, f := range profile.EditableFields {
			choices = append(choices, fieldLabels[f])
		}
		return Prompt{Text: "What would you like to change?", Choices: append(choices, "Cancel")}
	case StateFieldValue:
		return fieldPrompt(s.EditField)
	case StateChooseTarget:
		return Prompt{Text: "Whose profile do you want to review? Send the username as @username."}
	case StateEnterText:
		return Prompt{Text: fmt.Sprintf("Write your review of @%s.", s.ReviewTarget)}
	}
	return Prompt{}
}

func fieldPrompt(f profile.Field) Prompt {
	switch f {
	case profile.FieldGender:
		return Prompt{Text: "Choose your gender.", Choices: profile.GenderChoices}
	case profile.FieldAge:
		return Prompt{Text: "Enter your new age."}
	case profile.FieldAbout:
		return Prompt{Text: "Write a new text about yourself."}
	case profile.FieldTargetGender:
		return Prompt{Text: "Who would you like to meet?", Choices: profile.TargetGenderChoices}
	case profile.FieldAgeRange:
		return Prompt{Text: "Enter the new age range, for example 20-30."}
	case profile.FieldPhoto:
		return Prompt{Text: "Send a new photo, or press Skip to remove the current one.", Choices: []string{"Skip"}}
	}
	return Prompt{}
}
