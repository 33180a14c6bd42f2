package bot

import (
	"fmt"
	"strings"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/profile"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/review"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/session"
)

const helpText = `Available commands:
/start - create or recreate your profile
/edit - change one field of your profile
/search - browse matching profiles
/review @username - leave a review about a user
/reviews - read the reviews about you
/cancel - stop the current step
/help - show this message`

const (
	msgGenericFailure = "Something went wrong, please try again later."
	msgNoMatches      = "No suitable profiles found. Try widening your preferences with /edit."
	msgExhausted      = "You have seen every matching profile. Use /search to start over."
	msgNoReviews      = "There are no reviews about you yet."
	msgNoHandle       = "You need a username to receive reviews."
	msgReviewSaved    = "Thank you! Your review has been saved."
	msgLiked          = "Liked! We will let you know if it is mutual."
)

// Caption renders the text part of a profile card.
func Caption(p profile.Profile) string {
	var b strings.Builder
	if p.Handle != "" {
		fmt.Fprintf(&b, "@%s\n", p.Handle)
	}
	fmt.Fprintf(&b, "%s, %d\n", p.Gender.Label(), p.Age)
	b.WriteString(p.About)
	fmt.Fprintf(&b, "\nLooking for: %s, %d-%d", p.TargetGender.Label(), p.AgeMin, p.AgeMax)
	return b.String()
}

func candidateCard(p profile.Profile, position, total int) Response {
	caption := fmt.Sprintf("%s\n\n%d of %d", Caption(p), position+1, total)
	return Response{
		Kind: KindCard,
		Card: &Card{
			Profile: p,
			Caption: caption,
			Actions: []Action{
				{Name: ActionLike, Position: position},
				{Name: ActionSkip, Position: position},
			},
		},
	}
}

func fromResult(res session.Result) Response {
	switch res.Kind {
	case session.ResultPrompt:
		return Response{Kind: KindPrompt, Text: res.Prompt.Text, Choices: res.Prompt.Choices}
	case session.ResultReprompt:
		return Response{
			Kind:    KindPrompt,
			Text:    res.Message + "\n" + res.Prompt.Text,
			Choices: res.Prompt.Choices,
		}
	case session.ResultCommitted:
		if res.Profile != nil {
			return Response{
				Kind: KindCard,
				Text: res.Message + "\n\n" + helpText,
				Card: &Card{Profile: *res.Profile, Caption: Caption(*res.Profile)},
			}
		}
		return text(res.Message)
	}
	return text(res.Message)
}

// renderReviews numbers the entries and names the author when known.
func renderReviews(entries []review.Entry, authors map[string]string) string {
	var b strings.Builder
	b.WriteString("Reviews about you:")
	for i, e := range entries {
		fmt.Fprintf(&b, "\n%d. ", i+1)
		if h, ok := authors[e.Author]; ok {
			fmt.Fprintf(&b, "From @%s: ", h)
		}
		b.WriteString(e.Text)
	}
	return b.String()
}

func matchText(handle string) string {
	if handle == "" {
		return "It's a match! You liked each other."
	}
	return fmt.Sprintf("It's a match! You and @%s liked each other.", handle)
}

func alreadyMatchedText(handle string) string {
	if handle == "" {
		return "You have already matched with this person."
	}
	return fmt.Sprintf("You and @%s have already matched.", handle)
}
