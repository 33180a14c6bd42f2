package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitea.kood.tech/petrkubec/match-me-bot/backend/apperr"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/profile"
	"gitea.kood.tech/petrkubec/match-me-bot/backend/review"
)

type fixture struct {
	machine *Machine
	store   *profile.MemoryStore
	ledger  *review.Ledger
}

func newFixture() fixture {
	store := profile.NewMemoryStore()
	ledger := review.NewLedger(review.NewMemoryStore())
	return fixture{
		machine: NewMachine(profile.NewRepository(store), ledger),
		store:   store,
		ledger:  ledger,
	}
}

func (f fixture) feed(t *testing.T, identity string, inputs ...Input) Result {
	t.Helper()
	var res Result
	for _, in := range inputs {
		res = f.machine.Resume(context.Background(), identity, in)
	}
	return res
}

func (f fixture) createProfile(t *testing.T, identity, handle string) profile.Profile {
	t.Helper()
	ctx := context.Background()
	f.machine.Start(ctx, identity, handle, FlowCreate, "")
	res := f.feed(t, identity,
		Text("Female"), Text("25"), Text("hello"), Text("any"), Text("20-30"), Skip())
	require.Equal(t, ResultCommitted, res.Kind, res.Message)
	require.NotNil(t, res.Profile)
	return *res.Profile
}

func TestCreationFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid sequence commits literal values and ends the session", func(t *testing.T) {
		f := newFixture()
		res := f.machine.Start(ctx, "u1", "alice", FlowCreate, "")
		assert.Equal(t, ResultPrompt, res.Kind)
		assert.Equal(t, StateChooseGender, res.State)
		assert.Equal(t, profile.GenderChoices, res.Prompt.Choices)

		steps := []struct {
			in   Input
			next State
		}{
			{Text("male"), StateEnterAge},
			{Text("31"), StateEnterAbout},
			{Text("  likes hiking  "), StateChooseTargetGender},
			{Text("FEMALE"), StateEnterAgeRange},
			{Text(" 25 - 35 "), StateUploadPhoto},
		}
		for _, step := range steps {
			res = f.machine.Resume(ctx, "u1", step.in)
			require.Equal(t, ResultPrompt, res.Kind, res.Message)
			assert.Equal(t, step.next, res.State)
		}

		res = f.machine.Resume(ctx, "u1", Photo("file-123"))
		require.Equal(t, ResultCommitted, res.Kind)
		assert.Equal(t, StateIdle, res.State)

		_, active := f.machine.Session("u1")
		assert.False(t, active)

		stored, err := f.store.GetByIdentity(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "alice", stored.Handle)
		assert.Equal(t, profile.GenderMale, stored.Gender)
		assert.Equal(t, 31, stored.Age)
		assert.Equal(t, "likes hiking", stored.About)
		assert.Equal(t, profile.TargetFemale, stored.TargetGender)
		assert.Equal(t, 25, stored.AgeMin)
		assert.Equal(t, 35, stored.AgeMax)
		assert.Equal(t, "file-123", stored.Photo)
	})

	t.Run("Skip at the photo step stores no photo", func(t *testing.T) {
		f := newFixture()
		p := f.createProfile(t, "u1", "")
		assert.Empty(t, p.Photo)
		assert.Empty(t, p.Handle)
	})

	t.Run("A handle outside the allowed characters is not stored", func(t *testing.T) {
		f := newFixture()
		p := f.createProfile(t, "u1", "john.doe")
		assert.Empty(t, p.Handle)

		p = f.createProfile(t, "u2", "@john_doe")
		assert.Equal(t, "john_doe", p.Handle)
		found, err := f.store.GetByHandle(ctx, "JOHN_DOE")
		require.NoError(t, err)
		assert.Equal(t, "u2", found.Identity)
	})

	t.Run("Invalid inputs reprompt without touching state or draft", func(t *testing.T) {
		f := newFixture()
		f.machine.Start(ctx, "u1", "", FlowCreate, "")

		res := f.machine.Resume(ctx, "u1", Text("Alien"))
		assert.Equal(t, ResultReprompt, res.Kind)
		assert.Equal(t, StateChooseGender, res.State)
		assert.True(t, apperr.IsValidation(res.Err))
		assert.Equal(t, "What is your gender?", res.Prompt.Text)

		f.feed(t, "u1", Text("f"))
		before, _ := f.machine.Session("u1")

		res = f.machine.Resume(ctx, "u1", Text("abc"))
		assert.Equal(t, ResultReprompt, res.Kind)
		assert.Equal(t, "Please enter a number.", res.Message)
		after, _ := f.machine.Session("u1")
		assert.Equal(t, before, after)

		for _, age := range []string{"12", "121"} {
			res = f.machine.Resume(ctx, "u1", Text(age))
			assert.Equal(t, ResultReprompt, res.Kind, age)
		}

		f.feed(t, "u1", Text("13"), Text("about"), Text("any"))
		before, _ = f.machine.Session("u1")
		for _, rng := range []string{"30-20", "20", "a-b", "12-30", "20-121"} {
			res = f.machine.Resume(ctx, "u1", Text(rng))
			assert.Equal(t, ResultReprompt, res.Kind, rng)
		}
		after, _ = f.machine.Session("u1")
		assert.Equal(t, before, after)

		res = f.machine.Resume(ctx, "u1", Text("30-30"))
		assert.Equal(t, StateUploadPhoto, res.State)
	})

	t.Run("Wrong input kind reprompts", func(t *testing.T) {
		f := newFixture()
		f.machine.Start(ctx, "u1", "", FlowCreate, "")
		res := f.machine.Resume(ctx, "u1", Photo("x"))
		assert.Equal(t, ResultReprompt, res.Kind)
		assert.Equal(t, StateChooseGender, res.State)

		f.feed(t, "u1", Text("m"), Text("40"), Text("hi"), Text("a"), Text("20-50"))
		res = f.machine.Resume(ctx, "u1", Text("a picture"))
		assert.Equal(t, ResultReprompt, res.Kind)
		assert.Equal(t, "Please send a photo or press Skip.", res.Message)
	})

	t.Run("Cancel discards the draft from any state", func(t *testing.T) {
		f := newFixture()
		f.machine.Start(ctx, "u1", "", FlowCreate, "")
		f.feed(t, "u1", Text("m"), Text("40"))

		res := f.machine.Resume(ctx, "u1", Cancel())
		assert.Equal(t, ResultCancelled, res.Kind)
		assert.Equal(t, 0, f.machine.Active())

		_, err := f.store.GetByIdentity(ctx, "u1")
		assert.ErrorIs(t, err, profile.ErrNotFound)

		res = f.machine.Resume(ctx, "u1", Text("hello"))
		assert.Equal(t, ResultNoSession, res.Kind)
	})

	t.Run("Starting again resets a stale session", func(t *testing.T) {
		f := newFixture()
		f.machine.Start(ctx, "u1", "", FlowCreate, "")
		f.feed(t, "u1", Text("m"), Text("40"))

		res := f.machine.Start(ctx, "u1", "", FlowCreate, "")
		assert.Equal(t, StateChooseGender, res.State)
		s, ok := f.machine.Session("u1")
		require.True(t, ok)
		assert.True(t, s.Draft.Empty())
	})

	t.Run("Sessions of different identities are independent", func(t *testing.T) {
		f := newFixture()
		f.machine.Start(ctx, "u1", "", FlowCreate, "")
		f.machine.Start(ctx, "u2", "", FlowCreate, "")
		f.feed(t, "u1", Text("m"))

		s1, _ := f.machine.Session("u1")
		s2, _ := f.machine.Session("u2")
		assert.Equal(t, StateEnterAge, s1.State)
		assert.Equal(t, StateChooseGender, s2.State)
	})
}

func TestEditFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("Without a profile the flow aborts with guidance", func(t *testing.T) {
		f := newFixture()
		res := f.machine.Start(ctx, "u1", "", FlowEdit, "")
		assert.Equal(t, ResultAborted, res.Kind)
		assert.Equal(t, apperr.KindPrecondition, apperr.KindOf(res.Err))
		assert.Equal(t, "First create your profile with /start", res.Message)
		assert.Equal(t, 0, f.machine.Active())
	})

	t.Run("Changes only the chosen field", func(t *testing.T) {
		f := newFixture()
		before := f.createProfile(t, "u1", "alice")

		res := f.machine.Start(ctx, "u1", "", FlowEdit, "")
		assert.Equal(t, StateChooseField, res.State)
		assert.Contains(t, res.Prompt.Choices, "Age range")
		assert.Contains(t, res.Prompt.Choices, "Cancel")

		res = f.feed(t, "u1", Text("Age Range"))
		assert.Equal(t, StateFieldValue, res.State)

		res = f.feed(t, "u1", Text("40-30"))
		assert.Equal(t, ResultReprompt, res.Kind)

		res = f.feed(t, "u1", Text("30-40"))
		require.Equal(t, ResultCommitted, res.Kind)

		after, err := f.store.GetByIdentity(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 30, after.AgeMin)
		assert.Equal(t, 40, after.AgeMax)
		assert.Equal(t, before.About, after.About)
		assert.Equal(t, before.Handle, after.Handle)
	})

	t.Run("Photo can be replaced and removed", func(t *testing.T) {
		f := newFixture()
		f.createProfile(t, "u1", "")

		f.machine.Start(ctx, "u1", "", FlowEdit, "")
		res := f.feed(t, "u1", Text("photo"), Text("not a photo"))
		assert.Equal(t, ResultReprompt, res.Kind)
		res = f.feed(t, "u1", Photo("p1"))
		require.Equal(t, ResultCommitted, res.Kind)
		assert.Equal(t, "p1", res.Profile.Photo)

		f.machine.Start(ctx, "u1", "", FlowEdit, "")
		res = f.feed(t, "u1", Text("photo"), Skip())
		require.Equal(t, ResultCommitted, res.Kind)
		assert.Empty(t, res.Profile.Photo)
	})

	t.Run("Skip is rejected for text fields", func(t *testing.T) {
		f := newFixture()
		f.createProfile(t, "u1", "")
		f.machine.Start(ctx, "u1", "", FlowEdit, "")
		res := f.feed(t, "u1", Text("about"), Skip())
		assert.Equal(t, ResultReprompt, res.Kind)
		assert.Equal(t, StateFieldValue, res.State)
	})

	t.Run("Unknown field reprompts and cancel ends the flow", func(t *testing.T) {
		f := newFixture()
		f.createProfile(t, "u1", "")
		f.machine.Start(ctx, "u1", "", FlowEdit, "")

		res := f.feed(t, "u1", Text("height"))
		assert.Equal(t, ResultReprompt, res.Kind)
		assert.Equal(t, StateChooseField, res.State)

		res = f.feed(t, "u1", Text("Cancel"))
		assert.Equal(t, ResultCancelled, res.Kind)
		assert.Equal(t, 0, f.machine.Active())
	})
}

func TestReviewFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("Target must be written with @ and must exist", func(t *testing.T) {
		f := newFixture()
		f.createProfile(t, "u2", "Bob")

		f.machine.Start(ctx, "u1", "", FlowReview, "")
		res := f.feed(t, "u1", Text("bob"))
		assert.Equal(t, ResultReprompt, res.Kind)
		assert.Equal(t, "Please enter the username in the format @username.", res.Message)

		res = f.feed(t, "u1", Text("@nobody"))
		assert.Equal(t, ResultAborted, res.Kind)
		assert.True(t, apperr.IsNotFound(res.Err))
		assert.Equal(t, 0, f.machine.Active())
	})

	t.Run("Review is appended under the target handle", func(t *testing.T) {
		f := newFixture()
		f.createProfile(t, "u2", "Bob")

		f.machine.Start(ctx, "u1", "", FlowReview, "")
		res := f.feed(t, "u1", Text("@BOB"))
		require.Equal(t, StateEnterText, res.State)
		assert.Equal(t, "Write your review of @Bob.", res.Prompt.Text)

		res = f.feed(t, "u1", Text("   "))
		assert.Equal(t, ResultReprompt, res.Kind)

		res = f.feed(t, "u1", Text("great chat"))
		require.Equal(t, ResultCommitted, res.Kind)

		texts, err := f.ledger.List(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"great chat"}, texts)
	})

	t.Run("Argument jumps straight to the text step", func(t *testing.T) {
		f := newFixture()
		f.createProfile(t, "u2", "bob")

		res := f.machine.Start(ctx, "u1", "", FlowReview, "bob")
		assert.Equal(t, StateEnterText, res.State)
	})

	t.Run("Reviewing yourself is rejected", func(t *testing.T) {
		f := newFixture()
		f.createProfile(t, "u1", "me")
		res := f.machine.Start(ctx, "u1", "me", FlowReview, "@me")
		assert.Equal(t, ResultReprompt, res.Kind)
		assert.Equal(t, StateChooseTarget, res.State)
	})
}

type brokenStore struct {
	*profile.MemoryStore
}

func (brokenStore) Upsert(context.Context, profile.Profile) error {
	return errors.New("connection reset")
}

func TestStoreFailureAbortsFlow(t *testing.T) {
	ctx := context.Background()
	m := NewMachine(profile.NewRepository(brokenStore{profile.NewMemoryStore()}),
		review.NewLedger(review.NewMemoryStore()))

	m.Start(ctx, "u1", "", FlowCreate, "")
	var res Result
	for _, in := range []Input{Text("m"), Text("30"), Text("x"), Text("f"), Text("20-30"), Skip()} {
		res = m.Resume(ctx, "u1", in)
	}
	assert.Equal(t, ResultAborted, res.Kind)
	assert.Equal(t, apperr.KindStore, apperr.KindOf(res.Err))
	assert.Equal(t, "Something went wrong, please try again later.", res.Message)
	assert.Equal(t, 0, m.Active())
}

func TestParseText(t *testing.T) {
	assert.Equal(t, InputCancel, ParseText(" /CANCEL ").Kind)
	assert.Equal(t, InputSkip, ParseText("/skip").Kind)
	assert.Equal(t, Text("skip"), ParseText("skip"))
}
