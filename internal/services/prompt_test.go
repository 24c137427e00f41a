package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPromptRegistry(t *testing.T) {
	registry := DefaultPromptRegistry()

	assert.Equal(t, []string{
		TemplateJobDescriptionSummary,
		TemplateResumeAnalysis,
		TemplateResumeSummary,
	}, registry.Names())
}

func TestPromptRegistry_Render(t *testing.T) {
	registry := DefaultPromptRegistry()

	tests := []struct {
		name        string
		template    string
		vars        map[string]string
		wantContain []string
		wantMissing []string
		wantExtra   []string
		wantUnknown bool
	}{
		{
			name:        "resume summary",
			template:    TemplateResumeSummary,
			vars:        map[string]string{"resume": "Ten years of Go."},
			wantContain: []string{"Summarize the following resume", "Ten years of Go."},
		},
		{
			name:     "analysis",
			template: TemplateResumeAnalysis,
			vars: map[string]string{
				"resume_summary": "RS",
				"jd_summary":     "JS",
			},
			wantContain: []string{"RS", "JS", "## Match Percentage", "## General Feedback"},
		},
		{
			name:        "missing variable",
			template:    TemplateResumeAnalysis,
			vars:        map[string]string{"resume_summary": "RS"},
			wantMissing: []string{"jd_summary"},
		},
		{
			name:      "extra variable",
			template:  TemplateResumeSummary,
			vars:      map[string]string{"resume": "x", "job_description": "y"},
			wantExtra: []string{"job_description"},
		},
		{
			name:        "misspelled variable",
			template:    TemplateJobDescriptionSummary,
			vars:        map[string]string{"jobdescription": "y"},
			wantMissing: []string{"job_description"},
			wantExtra:   []string{"jobdescription"},
		},
		{
			name:        "unknown template",
			template:    "cover_letter",
			vars:        map[string]string{},
			wantUnknown: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := registry.Render(tt.template, tt.vars)

			if tt.wantContain != nil {
				require.NoError(t, err)
				for _, s := range tt.wantContain {
					assert.Contains(t, prompt, s)
				}
				assert.NotRegexp(t, placeholderPattern, prompt)
				return
			}

			var mismatch *TemplateMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Empty(t, prompt)
			assert.Equal(t, tt.template, mismatch.Template)
			assert.Equal(t, tt.wantUnknown, mismatch.Unknown)
			assert.ElementsMatch(t, tt.wantMissing, mismatch.Missing)
			assert.ElementsMatch(t, tt.wantExtra, mismatch.Extra)
			assert.True(t, IsDefect(err))
		})
	}
}

func TestPromptRegistry_ValuesAreNotReexpanded(t *testing.T) {
	registry := DefaultPromptRegistry()

	prompt, err := registry.Render(TemplateResumeAnalysis, map[string]string{
		"resume_summary": "uses {jd_summary} literally and map[string]{}",
		"jd_summary":     "JS",
	})

	require.NoError(t, err)
	assert.Contains(t, prompt, "uses {jd_summary} literally and map[string]{}")
}

func TestNewPromptRegistry_RejectsInconsistentTemplates(t *testing.T) {
	tests := []struct {
		name      string
		templates []PromptTemplate
	}{
		{
			name: "undeclared slot",
			templates: []PromptTemplate{
				{Name: "a", Variables: []string{"x"}, Format: "{x} and {y}"},
			},
		},
		{
			name: "declared but unused",
			templates: []PromptTemplate{
				{Name: "a", Variables: []string{"x", "y"}, Format: "{x}"},
			},
		},
		{
			name: "duplicate name",
			templates: []PromptTemplate{
				{Name: "a", Variables: []string{"x"}, Format: "{x}"},
				{Name: "a", Variables: []string{"x"}, Format: "{x}!"},
			},
		},
		{
			name: "slot outside the name grammar",
			templates: []PromptTemplate{
				{Name: "a", Variables: []string{"a"}, Format: "{a} and {Resume} and {job-id}"},
			},
		},
		{
			name: "declared variable outside the name grammar",
			templates: []PromptTemplate{
				{Name: "a", Variables: []string{"Resume"}, Format: "{Resume}"},
			},
		},
		{
			name: "no name",
			templates: []PromptTemplate{
				{Variables: []string{"x"}, Format: "{x}"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, err := NewPromptRegistry(tt.templates...)
			assert.Error(t, err)
			assert.Nil(t, registry)
		})
	}
}

func TestNewPromptRegistry_Custom(t *testing.T) {
	registry, err := NewPromptRegistry(PromptTemplate{
		Name:      "greeting",
		Variables: []string{"name"},
		Format:    "Hello {name}, welcome {name}.",
	})
	require.NoError(t, err)

	prompt, err := registry.Render("greeting", map[string]string{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada, welcome Ada.", prompt)
}

func TestNewPromptRegistry_ReportsInvalidSlotNames(t *testing.T) {
	registry, err := NewPromptRegistry(PromptTemplate{
		Name:      "x",
		Variables: []string{"a"},
		Format:    "{a} and {Resume} and {job-id}",
	})

	assert.Nil(t, registry)
	var mismatch *TemplateMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "x", mismatch.Template)
	assert.Equal(t, []string{"Resume", "job-id"}, mismatch.Invalid)
	assert.Contains(t, err.Error(), "invalid slot names Resume, job-id")
	assert.True(t, IsDefect(err))
}

func TestNewPromptRegistry_IgnoresBracesWithSpaces(t *testing.T) {
	registry, err := NewPromptRegistry(PromptTemplate{
		Name:      "json",
		Variables: []string{"resume"},
		Format:    `Return { "skills": [] } for {resume}`,
	})
	require.NoError(t, err)

	prompt, err := registry.Render("json", map[string]string{"resume": "R"})
	require.NoError(t, err)
	assert.Equal(t, `Return { "skills": [] } for R`, prompt)
}
