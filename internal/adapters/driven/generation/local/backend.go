// Package local provides a deterministic rule-based generation backend.
// It is the last resort in the cascade: a small set of canned answers on
// common immigration topics, matched by keyword against the user's
// question. When no rule matches it fails rather than guess, so the
// caller can report honestly that no answer was available.
package local

import (
	"context"
	"fmt"
	"strings"

	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.GenerationBackend = (*Backend)(nil)

// rule maps trigger keywords to a canned response.
type rule struct {
	keywords []string
	response string
}

// defaultRules covers the topics the corpus most often gets asked about.
var defaultRules = []rule{
	{
		keywords: []string{"work permit", "work authorization", "ead"},
		response: "A work permit (Employment Authorization Document, or EAD) allows you to work legally while your immigration case is pending. You apply with Form I-765. Processing times vary; check the current estimate for your service center before filing. Consult an accredited representative about your eligibility category.",
	},
	{
		keywords: []string{"green card", "permanent resident", "i-485"},
		response: "A green card grants lawful permanent residence. The most common paths are family sponsorship, employment sponsorship, and adjustment of status from certain visas. The main application is Form I-485 when adjusting from inside the country. Eligibility depends heavily on your current status, so review your situation with an accredited representative.",
	},
	{
		keywords: []string{"citizenship", "naturalization", "n-400"},
		response: "Naturalization is the process of becoming a citizen, applied for with Form N-400. You generally need five years as a permanent resident (three if married to a citizen), continuous residence, and passing the civics and English tests. Fee waivers are available with Form I-912 if you meet income requirements.",
	},
	{
		keywords: []string{"asylum", "refugee", "persecution"},
		response: "Asylum protects people who fear persecution in their home country based on race, religion, nationality, political opinion, or membership in a particular social group. You generally must apply within one year of arrival using Form I-589. Asylum cases are complex; seek help from an accredited legal service provider as early as possible.",
	},
	{
		keywords: []string{"visa", "b-2", "f-1", "h-1b"},
		response: "Visas fall into two broad families: nonimmigrant (temporary, such as visitor, student, and work visas) and immigrant (leading to permanent residence). Each category has its own eligibility rules and application process, usually starting at a consulate abroad. Overstaying a visa can have serious consequences for future applications.",
	},
	{
		keywords: []string{"deportation", "removal", "immigration court"},
		response: "If you are in removal proceedings you have the right to a hearing before an immigration judge and the right to be represented by a lawyer at your own expense. Never miss a court date; missing one can result in an automatic removal order. Free and low-cost legal help is available from accredited organizations.",
	},
}

// Backend answers from a fixed rule table.
type Backend struct {
	rules []rule
}

// NewBackend creates a local rule-based backend with the default rules.
func NewBackend() *Backend {
	return &Backend{rules: defaultRules}
}

// Name identifies the backend.
func (b *Backend) Name() string {
	return "local"
}

// Generate matches the last user message against the rule table. No
// match is a failure, not a made-up answer.
func (b *Backend) Generate(_ context.Context, messages []domain.ChatMessage) (string, error) {
	query := lastUserMessage(messages)
	if query == "" {
		return "", fmt.Errorf("%w: no user message in conversation", domain.ErrBackendFailure)
	}

	lowered := strings.ToLower(query)
	for _, r := range b.rules {
		for _, kw := range r.keywords {
			if strings.Contains(lowered, kw) {
				return r.response, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no canned answer matches the question", domain.ErrBackendFailure)
}

// Ping always succeeds.
func (b *Backend) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (b *Backend) Close() error {
	return nil
}

// lastUserMessage returns the content of the most recent user turn.
func lastUserMessage(messages []domain.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
