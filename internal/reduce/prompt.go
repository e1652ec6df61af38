package reduce

import (
	"fmt"
	"strings"
)

func finalPrompt(sections int, combined string) string {
	return fmt.Sprintf(`Please create a comprehensive final summary of the entire document based on the following section summaries.

Document Overview:
- Total Sections: %d
- Document Type: Large document processed in chunks

Section Summaries:
%s

Instructions for Final Summary:
1. Create a coherent, well-structured summary of the entire document
2. Organize information logically and maintain document flow
3. Include the most important points from all sections
4. Provide context and connections between different sections
5. If this is a technical document, maintain technical accuracy
6. Include key findings, conclusions, and recommendations if present
7. Make the summary comprehensive but concise

Final Document Summary:`, sections, combined)
}

func batchPrompt(name string, combined string) string {
	return fmt.Sprintf(`Create a concise summary of the following document sections (%s):

%s

Summary:`, name, combined)
}

func finalFromBatchesPrompt(combined string) string {
	return fmt.Sprintf(`Create a comprehensive final summary of the entire document based on these batch summaries:

%s

Final Document Summary:`, combined)
}

func fallbackSummary(items []section) string {
	sb := strings.Builder{}
	sb.WriteString("# Document Summary (Fallback Mode)\n\n")
	fmt.Fprintf(&sb, "This document was processed in %d sections. Below is the combined summary of all sections:\n\n", len(items))
	sb.WriteString(join(items))
	sb.WriteString("\n\n---\n*Note: This is a fallback summary created because the summarization service was unavailable.*")
	return sb.String()
}

// batchFallback keeps a failed batch's sections verbatim behind a tag so the
// final prompt never mistakes them for a model summary.
func batchFallback(items []section) string {
	return BatchFallbackTag + "\n" + join(items)
}
