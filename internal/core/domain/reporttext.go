package domain

import (
	"fmt"
	"strings"
)

// RenderReportText produces the narrative report for a completed analysis.
// Doctors get the detailed format with the identified-conditions section;
// patients get the short format with the AI caveat and no condition tags.
func RenderReportText(result AnalysisResult, role Role) string {
	if role == RoleDoctor {
		var b strings.Builder
		b.WriteString("Detailed Chest X-Ray Analysis Report\n\n")
		b.WriteString("Findings:\n")
		b.WriteString(result.Caption)
		b.WriteString("\n\nIdentified Conditions:\n")
		if len(result.Tags) == 0 {
			b.WriteString("No specific conditions identified")
		} else {
			for i, tag := range result.Tags {
				if i > 0 {
					b.WriteString("\n")
				}
				b.WriteString("- ")
				b.WriteString(tag)
			}
		}
		b.WriteString("\n\nNote: This is an AI-assisted analysis. Please review and verify all findings.")
		return b.String()
	}

	return fmt.Sprintf(
		"Chest X-Ray Analysis Report\n\nFindings:\n%s\n\nNote: This is an AI-generated analysis and should be reviewed by a medical professional.",
		result.Caption,
	)
}

// RenderErrorReportText produces the narrative for a failed analysis,
// embedding the failure reason.
func RenderErrorReportText(reason string) string {
	return fmt.Sprintf("An error occurred while analyzing the image: %s. Please try again.", reason)
}
