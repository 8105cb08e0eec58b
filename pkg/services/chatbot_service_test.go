package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondCustomer(t *testing.T) {
	s := NewChatbotService()

	tests := []struct {
		name    string
		input   string
		prefix  string
		matched bool
	}{
		{"first rule wins over later ones", "How much water does wheat need?", "Wheat is a staple crop", true},
		{"case insensitive", "TOMATOES in July", "Tomatoes thrive", true},
		{"maize maps to corn", "maize spacing", "Corn grows best", true},
		{"pesticide maps to organic", "which pesticide is safe", "Organic farming", true},
		{"price keywords", "where can I buy seeds", "You can browse our marketplace", true},
		{"greeting", "hey there", "Hello! I'm here to help", true},
		{"substring match inside other words", "this is it", "Hello! I'm here to help", true},
		{"no keywords", "xyz123", "Thank you for your question!", false},
		{"empty", "", "Thank you for your question!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, matched, err := s.Respond(PersonaCustomer, tt.input)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(got, tt.prefix), "got %q", got)
			assert.Equal(t, tt.matched, matched)
		})
	}
}

func TestRespondRegional(t *testing.T) {
	s := NewChatbotService()

	got, matched, err := s.Respond(PersonaRegional, "rice paddies")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Contains(t, got, "tropical and subtropical")

	got, _, _ = s.Respond(PersonaRegional, "desert farming")
	assert.Contains(t, got, "drought-resistant")

	got, matched, _ = s.Respond(PersonaRegional, "xyz123")
	assert.False(t, matched)
	assert.True(t, strings.HasPrefix(got, "Based on your query, this crop grows well in arid regions."))
}

func TestPersonasAreIndependent(t *testing.T) {
	s := NewChatbotService()

	customer, _, _ := s.Respond(PersonaCustomer, "wheat")
	regional, _, _ := s.Respond(PersonaRegional, "wheat")
	assert.NotEqual(t, customer, regional)

	// 顧客側には米の規則がないので既定応答になる
	_, matched, _ := s.Respond(PersonaCustomer, "rice")
	assert.False(t, matched)
}

func TestRespondUnknownPersona(t *testing.T) {
	s := NewChatbotService()
	_, _, err := s.Respond(Persona("farmer"), "wheat")
	assert.ErrorIs(t, err, ErrUnknownPersona)
}

func TestParsePersona(t *testing.T) {
	p, err := ParsePersona("")
	require.NoError(t, err)
	assert.Equal(t, PersonaCustomer, p)

	p, err = ParsePersona(" Regional ")
	require.NoError(t, err)
	assert.Equal(t, PersonaRegional, p)

	_, err = ParsePersona("admin")
	assert.ErrorIs(t, err, ErrUnknownPersona)
}

func TestTopicVector(t *testing.T) {
	s := NewChatbotService()
	topics := s.Topics()
	require.Equal(t, "general", topics[len(topics)-1])

	index := func(topic string) int {
		for i, tp := range topics {
			if tp == topic {
				return i
			}
		}
		t.Fatalf("topic %q not found", topic)
		return -1
	}

	vec := s.TopicVector("wheat grain irrigation")
	require.Len(t, vec, len(topics))
	assert.Equal(t, float32(2), vec[index("wheat")])
	assert.Equal(t, float32(1), vec[index("water")])
	assert.Equal(t, float32(0), vec[index("general")])

	vec = s.TopicVector("xyz")
	assert.Equal(t, float32(1), vec[index("general")])
}
