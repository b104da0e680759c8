package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIdentity_Merge(t *testing.T) {
	t.Parallel()

	t.Run("fills empty fields", func(t *testing.T) {
		t.Parallel()

		var ci ClientIdentity
		changed := ci.Merge(ClientIdentity{
			Name:            "Ava Client",
			Organization:    "Acme Corp",
			CaseDescription: "rear-ended at a stoplight",
			Emails:          []string{"ava@example.test"},
			Phones:          []string{"+1-555-0100"},
		})

		assert.True(t, changed)
		assert.Equal(t, "Ava Client", ci.Name)
		assert.Equal(t, "Acme Corp", ci.Organization)
		assert.Equal(t, []string{"ava@example.test"}, ci.Emails)
		assert.Equal(t, []string{"+1-555-0100"}, ci.Phones)
	})

	t.Run("empty partial never erases", func(t *testing.T) {
		t.Parallel()

		ci := ClientIdentity{Name: "Ava Client", Emails: []string{"ava@example.test"}}
		changed := ci.Merge(ClientIdentity{})

		assert.False(t, changed)
		assert.Equal(t, "Ava Client", ci.Name)
		assert.Equal(t, []string{"ava@example.test"}, ci.Emails)
	})

	t.Run("newer non-empty value replaces", func(t *testing.T) {
		t.Parallel()

		ci := ClientIdentity{Name: "Ava"}
		changed := ci.Merge(ClientIdentity{Name: "Ava Client"})

		assert.True(t, changed)
		assert.Equal(t, "Ava Client", ci.Name)
	})

	t.Run("whitespace-only values ignored", func(t *testing.T) {
		t.Parallel()

		ci := ClientIdentity{Name: "Ava Client"}
		changed := ci.Merge(ClientIdentity{Name: "   ", Emails: []string{"  "}})

		assert.False(t, changed)
		assert.Equal(t, "Ava Client", ci.Name)
		assert.Empty(t, ci.Emails)
	})

	t.Run("emails deduplicate case-insensitively", func(t *testing.T) {
		t.Parallel()

		ci := ClientIdentity{Emails: []string{"ava@example.test"}}
		changed := ci.Merge(ClientIdentity{Emails: []string{"AVA@Example.Test", "second@example.test"}})

		assert.True(t, changed)
		assert.Equal(t, []string{"ava@example.test", "second@example.test"}, ci.Emails)
	})

	t.Run("phones deduplicate exactly", func(t *testing.T) {
		t.Parallel()

		ci := ClientIdentity{Phones: []string{"+1-555-0100"}}
		changed := ci.Merge(ClientIdentity{Phones: []string{"+1-555-0100"}})

		assert.False(t, changed)
		assert.Len(t, ci.Phones, 1)
	})

	t.Run("unchanged same value reports false", func(t *testing.T) {
		t.Parallel()

		ci := ClientIdentity{Name: "Ava Client"}
		assert.False(t, ci.Merge(ClientIdentity{Name: "Ava Client"}))
	})
}

func TestClientIdentity_HasContact(t *testing.T) {
	t.Parallel()

	assert.False(t, (&ClientIdentity{Name: "Ava"}).HasContact())
	assert.True(t, (&ClientIdentity{Emails: []string{"a@b.test"}}).HasContact())
	assert.True(t, (&ClientIdentity{Phones: []string{"+1-555-0100"}}).HasContact())
}

func TestClientIdentity_Fragments(t *testing.T) {
	t.Parallel()

	t.Run("empty identity", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, (&ClientIdentity{}).Fragments())
	})

	t.Run("case description excluded", func(t *testing.T) {
		t.Parallel()

		ci := ClientIdentity{
			Name:            "Ava Client",
			Organization:    "Acme Corp",
			Emails:          []string{"ava@example.test"},
			Phones:          []string{"+1-555-0100"},
			CaseDescription: "long narrative that would only add noise",
		}

		assert.Equal(t,
			[]string{"Ava Client", "Acme Corp", "ava@example.test", "+1-555-0100"},
			ci.Fragments(),
		)
	})
}
