package service

import (
	"fmt"
	"strings"

	"github.com/karthickst/agenticosv2.0/internal/domain"
)

// SpecType is one kind of document the generator can produce.
type SpecType struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Description  string `json:"description"`
	Extension    string `json:"extension"`
	instructions string
}

// Model is an LLM the generator may be pointed at.
type Model struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

const (
	DefaultModel = "claude-opus-4-5-20251101"
	MaxTokens    = 4096
)

var Models = []Model{
	{ID: "claude-opus-4-5-20251101", Label: "Claude Opus 4.5 (Most capable)"},
	{ID: "claude-sonnet-4-5-20250929", Label: "Claude Sonnet 4.5 (Balanced)"},
	{ID: "claude-haiku-3-5-20241022", Label: "Claude Haiku 3.5 (Fast)"},
}

var SpecTypes = []SpecType{
	{
		ID: "functional", Label: "Functional Specification", Extension: "md",
		Description:  "Detailed functional requirements document",
		instructions: "Generate a detailed functional specification document with sections for: Overview, Scope, Business Rules, Functional Requirements (derived from the Gherkin scenarios), Non-Functional Requirements, and Constraints. Use markdown formatting.",
	},
	{
		ID: "technical", Label: "Technical Design Spec", Extension: "md",
		Description:  "Architecture and implementation details",
		instructions: "Generate a technical design specification with: System Architecture, Component Design, Data Models (based on domains), API Design, Integration Points, and Technical Constraints. Use markdown.",
	},
	{
		ID: "bdd", Label: "BDD Feature Files", Extension: "feature",
		Description:  "Cucumber/Gherkin .feature files",
		instructions: "Generate Gherkin .feature files for each requirement. Use proper Feature, Background, Scenario, and Scenario Outline structures with Examples tables where appropriate.",
	},
	{
		ID: "api", Label: "API Specification (OpenAPI)", Extension: "yaml",
		Description:  "OpenAPI 3.0 YAML specification",
		instructions: "Generate an OpenAPI 3.0 YAML specification. Include paths, request/response schemas based on the domain models, and proper HTTP methods.",
	},
	{
		ID: "test-plan", Label: "Test Plan", Extension: "md",
		Description:  "Comprehensive test plan document",
		instructions: "Generate a comprehensive test plan with: Test Strategy, Test Scope, Test Cases (based on the provided test cases), Test Environment, Entry/Exit Criteria, and Risk Assessment.",
	},
	{
		ID: "user-stories", Label: "User Stories", Extension: "md",
		Description:  "Agile user stories with acceptance criteria",
		instructions: `Generate Agile user stories in "As a [role], I want [goal], So that [benefit]" format for each requirement, with acceptance criteria derived from the Gherkin steps.`,
	},
}

// LookupSpecType finds a spec type by id.
func LookupSpecType(id string) (SpecType, bool) {
	for _, st := range SpecTypes {
		if st.ID == id {
			return st, true
		}
	}
	return SpecType{}, false
}

// KnownModel reports whether id is in Models.
func KnownModel(id string) bool {
	for _, m := range Models {
		if m.ID == id {
			return true
		}
	}
	return false
}

// DownloadName is the suggested file name for a saved spec, e.g.
// "spec-api-2026-01-31.yaml".
func DownloadName(s *domain.GeneratedSpec) string {
	ext := "md"
	if st, ok := LookupSpecType(s.SpecType); ok {
		ext = st.Extension
	}
	day := unixMilliUTC(s.CreatedAt).Format("2006-01-02")
	return fmt.Sprintf("spec-%s-%s.%s", s.SpecType, day, ext)
}

// ProjectSnapshot is everything a prompt is built from.
type ProjectSnapshot struct {
	Project      *domain.Project
	Domains      []*domain.Domain
	Requirements []*domain.Requirement
	TestCases    []*domain.TestCase
	DataBags     []*domain.DataBag
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// BuildPrompt renders the generation prompt for one spec type.
func BuildPrompt(snap ProjectSnapshot, st SpecType) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert software architect and business analyst. Generate a %s based on the following project information.\n\n", st.instructions)

	name, desc := "Untitled", ""
	if snap.Project != nil {
		name, desc = snap.Project.Name, snap.Project.Description
	}
	fmt.Fprintf(&b, "PROJECT: %s\n", name)
	if desc != "" {
		fmt.Fprintf(&b, "Description: %s\n", desc)
	}
	b.WriteString("\n\n")

	b.WriteString("=== DOMAIN MODELS ===\n")
	b.WriteString(orDefaultText(domainSection(snap.Domains), "No domains defined"))
	b.WriteString("\n\n=== REQUIREMENTS (Gherkin Format) ===\n")
	b.WriteString(orDefaultText(requirementSection(snap.Requirements), "No requirements defined"))
	b.WriteString("\n\n=== TEST CASES ===\n")
	b.WriteString(orDefaultText(testCaseSection(snap.TestCases, snap.Requirements), "No test cases defined"))
	b.WriteString("\n\n")

	if len(snap.DataBags) > 0 {
		b.WriteString("=== TEST DATA BAGS ===\n")
		lines := make([]string, 0, len(snap.DataBags))
		for _, bag := range snap.DataBags {
			cols := make([]string, 0, len(bag.Schema))
			for _, c := range bag.Schema {
				cols = append(cols, c.Name)
			}
			lines = append(lines, fmt.Sprintf("%s: %d rows, columns: %s", bag.Name, len(bag.Records), strings.Join(cols, ", ")))
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	fmt.Fprintf(&b, "\n\n---\n%s\n%s\n\n", st.Description, st.instructions)
	b.WriteString("Be thorough, professional, and align the specification with the provided Gherkin requirements and domain models.")
	return b.String()
}

func orDefaultText(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func domainSection(domains []*domain.Domain) string {
	blocks := make([]string, 0, len(domains))
	for _, d := range domains {
		attrs := make([]string, 0, len(d.Attributes))
		for _, a := range d.Attributes {
			line := fmt.Sprintf("  - %s (%s)", a.Name, a.Type)
			if a.Required {
				line += " [required]"
			}
			if a.Description != "" {
				line += ": " + a.Description
			}
			attrs = append(attrs, line)
		}
		blocks = append(blocks, fmt.Sprintf("Domain: %s\nDescription: %s\nAttributes:\n%s",
			d.Name, orNA(d.Description), strings.Join(attrs, "\n")))
	}
	return strings.Join(blocks, "\n\n")
}

func clauses(keyword string, steps []string, continuation bool) string {
	lines := make([]string, 0, len(steps))
	for i, s := range steps {
		kw := keyword
		if continuation && i > 0 {
			kw = "And"
		}
		lines = append(lines, fmt.Sprintf("    %s %s", kw, s))
	}
	return strings.Join(lines, "\n")
}

func requirementSection(reqs []*domain.Requirement) string {
	blocks := make([]string, 0, len(reqs))
	for _, r := range reqs {
		var scenario []string
		for _, part := range []string{
			clauses("Given", r.Gherkin.Given, false),
			clauses("When", r.Gherkin.When, true),
			clauses("Then", r.Gherkin.Then, true),
		} {
			if part != "" {
				scenario = append(scenario, part)
			}
		}
		blocks = append(blocks, fmt.Sprintf("Requirement: %s [%s]\nDescription: %s\nScenario:\n%s",
			r.Title, r.Status, orNA(r.Description), strings.Join(scenario, "\n")))
	}
	return strings.Join(blocks, "\n\n")
}

func testCaseSection(cases []*domain.TestCase, reqs []*domain.Requirement) string {
	titles := make(map[int64]string, len(reqs))
	for _, r := range reqs {
		titles[r.ID] = r.Title
	}

	blocks := make([]string, 0, len(cases))
	for _, tc := range cases {
		linked := "N/A"
		if tc.RequirementID != nil && titles[*tc.RequirementID] != "" {
			linked = titles[*tc.RequirementID]
		}
		steps := make([]string, 0, len(tc.Steps))
		for _, s := range tc.Steps {
			steps = append(steps, fmt.Sprintf("%s: %s", s.Type, s.Description))
		}
		blocks = append(blocks, fmt.Sprintf("Test Case: %s [%s]\nLinked Requirement: %s\nSteps: %s",
			tc.Name, tc.Status, linked, strings.Join(steps, "; ")))
	}
	return strings.Join(blocks, "\n\n")
}
