package services

import (
	"regexp"
	"strconv"
	"strings"
)

type ReportSection string

const (
	SectionMatchPercentage        ReportSection = "match_percentage"
	SectionMissingSkills          ReportSection = "missing_skills"
	SectionImprovementSuggestions ReportSection = "improvement_suggestions"
	SectionGeneralFeedback        ReportSection = "general_feedback"
)

// ReportSections lists the sections in the order the prompt asks for them.
var ReportSections = []ReportSection{
	SectionMatchPercentage,
	SectionMissingSkills,
	SectionImprovementSuggestions,
	SectionGeneralFeedback,
}

var sectionKeywords = map[ReportSection][]string{
	SectionMatchPercentage:        {"match percentage", "match score", "match rate", "match"},
	SectionMissingSkills:          {"missing skills", "missing", "skill gaps", "gaps"},
	SectionImprovementSuggestions: {"improvement", "improve", "suggestion", "recommendation"},
	SectionGeneralFeedback:        {"general feedback", "feedback", "best practice", "overall"},
}

var (
	markdownHeading = regexp.MustCompile(`^\s{0,3}(#{1,6})\s+(.+?)\s*#*\s*$`)
	boldHeading     = regexp.MustCompile(`^\s*(?:\d+[.)]\s*)?\*\*(.+?)\*\*:?\s*$`)
	percentValue    = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*%`)
)

type ReportCheck struct {
	Found           []ReportSection
	Missing         []ReportSection
	MatchPercentage *float64
}

func (c ReportCheck) Complete() bool {
	return len(c.Missing) == 0
}

// CheckReport looks for the four expected section headings in a markdown
// report and reads the match percentage when one is stated. It never
// modifies or rejects the report.
func CheckReport(report AnalysisReport) ReportCheck {
	found := make(map[ReportSection]bool, len(ReportSections))
	var matchBody []string
	inMatch := false

	for _, line := range strings.Split(string(report), "\n") {
		heading, ok := headingText(line)
		if !ok {
			if inMatch {
				matchBody = append(matchBody, line)
			}
			continue
		}

		section, ok := classifyHeading(heading, found)
		inMatch = ok && section == SectionMatchPercentage
		if ok {
			found[section] = true
			if inMatch {
				// Some models put the number in the heading itself
				matchBody = append(matchBody, heading)
			}
		}
	}

	check := ReportCheck{}
	for _, section := range ReportSections {
		if found[section] {
			check.Found = append(check.Found, section)
		} else {
			check.Missing = append(check.Missing, section)
		}
	}

	if m := percentValue.FindStringSubmatch(strings.Join(matchBody, "\n")); m != nil {
		if value, err := strconv.ParseFloat(m[1], 64); err == nil && value <= 100 {
			check.MatchPercentage = &value
		}
	}

	return check
}

func headingText(line string) (string, bool) {
	if m := markdownHeading.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[2]), true
	}
	if m := boldHeading.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// classifyHeading picks the first not-yet-seen section whose keywords
// appear in the heading, checking specific keywords before broad ones.
func classifyHeading(heading string, seen map[ReportSection]bool) (ReportSection, bool) {
	lower := strings.ToLower(heading)

	for pass := 0; pass < 2; pass++ {
		for _, section := range ReportSections {
			if seen[section] {
				continue
			}
			keywords := sectionKeywords[section]
			if pass == 0 {
				keywords = keywords[:1]
			}
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					return section, true
				}
			}
		}
	}
	return "", false
}
