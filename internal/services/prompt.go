package services

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	TemplateResumeSummary         = "resume_summary"
	TemplateJobDescriptionSummary = "job_description_summary"
	TemplateResumeAnalysis        = "resume_analysis"
)

var (
	// placeholderPattern matches anything that looks like a slot, valid or
	// not, so malformed slots are caught at registration.
	placeholderPattern = regexp.MustCompile(`\{([^{}\s]+)\}`)
	slotName           = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// PromptTemplate is a format string with {name} slots and the exact set of
// variables it needs.
type PromptTemplate struct {
	Name      string
	Variables []string
	Format    string
}

type compiledTemplate struct {
	name     string
	format   string
	required map[string]struct{}
}

// PromptRegistry renders registered templates. It is immutable after
// construction and safe for concurrent use.
type PromptRegistry struct {
	templates map[string]compiledTemplate
}

func NewPromptRegistry(templates ...PromptTemplate) (*PromptRegistry, error) {
	registry := &PromptRegistry{templates: make(map[string]compiledTemplate, len(templates))}

	for _, tmpl := range templates {
		if tmpl.Name == "" {
			return nil, fmt.Errorf("prompt template without a name")
		}
		if _, exists := registry.templates[tmpl.Name]; exists {
			return nil, fmt.Errorf("prompt template %q registered twice", tmpl.Name)
		}

		required := make(map[string]struct{}, len(tmpl.Variables))
		invalid := make(map[string]struct{})
		for _, v := range tmpl.Variables {
			required[v] = struct{}{}
			if !slotName.MatchString(v) {
				invalid[v] = struct{}{}
			}
		}

		slots := make(map[string]struct{})
		for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl.Format, -1) {
			slots[m[1]] = struct{}{}
			if !slotName.MatchString(m[1]) {
				invalid[m[1]] = struct{}{}
			}
		}

		if len(invalid) > 0 {
			return nil, &TemplateMismatchError{Template: tmpl.Name, Invalid: sortedKeys(invalid)}
		}

		if mismatch := diffVariables(tmpl.Name, required, slots); mismatch != nil {
			return nil, mismatch
		}

		registry.templates[tmpl.Name] = compiledTemplate{
			name:     tmpl.Name,
			format:   tmpl.Format,
			required: required,
		}
	}

	return registry, nil
}

// DefaultPromptRegistry holds the summary and analysis prompts. The
// templates are static, so a failure here is a build defect.
func DefaultPromptRegistry() *PromptRegistry {
	registry, err := NewPromptRegistry(defaultTemplates()...)
	if err != nil {
		panic(fmt.Sprintf("invalid default prompt templates: %v", err))
	}
	return registry
}

// Render substitutes every slot of the named template. The variable names
// must match the template's declared set exactly.
func (r *PromptRegistry) Render(name string, variables map[string]string) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", &TemplateMismatchError{Template: name, Unknown: true}
	}

	given := make(map[string]struct{}, len(variables))
	for k := range variables {
		given[k] = struct{}{}
	}
	if mismatch := diffVariables(name, tmpl.required, given); mismatch != nil {
		return "", mismatch
	}

	// Single pass: substituted values are not scanned again, so user text
	// containing braces is left untouched.
	pairs := make([]string, 0, len(variables)*2)
	for k, v := range variables {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl.format), nil
}

// Names lists the registered template names.
func (r *PromptRegistry) Names() []string {
	set := make(map[string]struct{}, len(r.templates))
	for name := range r.templates {
		set[name] = struct{}{}
	}
	return sortedKeys(set)
}

func diffVariables(name string, required, given map[string]struct{}) *TemplateMismatchError {
	missing := make(map[string]struct{})
	extra := make(map[string]struct{})

	for k := range required {
		if _, ok := given[k]; !ok {
			missing[k] = struct{}{}
		}
	}
	for k := range given {
		if _, ok := required[k]; !ok {
			extra[k] = struct{}{}
		}
	}

	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	return &TemplateMismatchError{
		Template: name,
		Missing:  sortedKeys(missing),
		Extra:    sortedKeys(extra),
	}
}

func defaultTemplates() []PromptTemplate {
	return []PromptTemplate{
		{
			Name:      TemplateResumeSummary,
			Variables: []string{"resume"},
			Format: `Summarize the following resume by extracting key skills, job roles, achievements, and relevant experience:

{resume}`,
		},
		{
			Name:      TemplateJobDescriptionSummary,
			Variables: []string{"job_description"},
			Format: `Summarize the following job description by extracting core responsibilities, qualifications, and required skills:

{job_description}`,
		},
		{
			Name:      TemplateResumeAnalysis,
			Variables: []string{"resume_summary", "jd_summary"},
			Format: `You are an expert resume evaluator for an ATS system.

Given the summarized resume:
{resume_summary}

And the summarized job description:
{jd_summary}

Perform the following analysis:
1. What is the resume-to-job description match percentage?
2. What are the missing skills from the resume based on the job description?
3. Suggest improvements to the resume, specifically:
   - Add missing skills
   - Ensure each bullet point follows: what was done, why it was done, and what the impact was.
4. Give general feedback based on best resume practices (clarity, formatting, relevance, action verbs, etc).

Respond in markdown format using exactly these section headers:
## Match Percentage
## Missing Skills
## Improvement Suggestions
## General Feedback`,
		},
	}
}
