package ai

import (
	"fmt"

	"github.com/xxxsen/docdigest/internal/model"
)

const (
	RelevantVerdict    = "RELEVANT"
	NotRelevantVerdict = "NOT_RELEVANT"
)

func chunkSummaryPrompt(chunk *model.Chunk, content string) string {
	return fmt.Sprintf(`Please provide a concise summary of the following document section.

Document Section Information:
- Section Type: %s
- Page Range: %s
- Content Length: %d characters

Document Content:
%s

Instructions:
1. Focus on the key information and main points
2. Maintain the context and flow of information
3. Include important facts, figures, and concepts
4. Keep the summary concise but comprehensive
5. If this is a technical document, preserve technical accuracy

Summary:`, chunk.Metadata.ChunkType, chunk.Metadata.PageRange, len([]rune(chunk.Content)), content)
}

func relevancePrompt(question string, passages string) string {
	return fmt.Sprintf(`Analyze if the following document content is relevant to the user's question.

Document Content:
%s

User Question: %s

Determine if the document content contains information that can answer the user's question.
Consider:
1. Does the content mention topics related to the question?
2. Does it contain facts, data, or explanations that address the question?
3. Is the content specific enough to provide a meaningful answer?
4. Are there any keywords or terms that match the question?

Be generous in determining relevance. If there are ANY related terms, concepts, or information that could help answer the question, mark it as %s.

Respond with only "%s" if the content is relevant, or "%s" if it's completely unrelated.`,
		passages, question, RelevantVerdict, RelevantVerdict, NotRelevantVerdict)
}

func answerPrompt(question string, passages string, fallback string) string {
	return fmt.Sprintf(`Based on the following document context, please answer the user's question.

Context:
%s

User Question: %s

Please provide a comprehensive and accurate answer based on the context provided.
If the context doesn't contain enough information to answer the question, respond with: "%s"`,
		passages, question, fallback)
}
