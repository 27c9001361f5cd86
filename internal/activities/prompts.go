package activities

import (
	"fmt"
	"strings"
	"time"
)

func currentDate() string {
	return time.Now().Format("January 2, 2006")
}

// buildQueryWriterPrompt instructs the model to expand one research topic
// into at most numQueries diverse search queries with a strict JSON shape.
func buildQueryWriterPrompt(numQueries int) string {
	return fmt.Sprintf(`Your goal is to generate sophisticated and diverse web search queries. These queries are intended for an advanced automated web research tool capable of analyzing complex results, following links, and synthesizing information.

Instructions:
- Always prefer a single search query, only add another query if the original question requests multiple aspects or elements and one query is not enough.
- Each query should focus on one specific aspect of the original question.
- Don't produce more than %d queries.
- Queries should be diverse, if the topic is broad, generate more than 1 query.
- Don't generate multiple similar queries, 1 is enough.
- Query should ensure that the most current information is gathered. The current date is %s.

Format:
- Format your response as a JSON object with ALL of these exact keys:
   - "rationale": Brief explanation of why these queries are relevant
   - "query": A list of search queries`, numQueries, currentDate())
}

// buildReflectionPrompt asks the model to judge evidence sufficiency and
// emit typed follow-up queries.
func buildReflectionPrompt(topic string) string {
	return fmt.Sprintf(`You are an expert research assistant analyzing summaries about %q.

Instructions:
- Identify knowledge gaps or areas that need deeper exploration.
- If provided summaries are sufficient to answer the user's question, set "is_sufficient" to true and leave "knowledge_gap" and "follow_up_queries" empty.
- If there is a knowledge gap:
    - Describe it in "knowledge_gap".
    - Generate one or more follow-up queries to address this gap.
    - For each query, decide if it's a general web search or if it's more suited for academic papers.
- Focus on technical details, implementation specifics, or emerging trends that weren't fully covered.

Requirements:
- Each follow-up query must be self-contained and include necessary context.
- The "follow_up_queries" field must be a list of objects. Each object must have a "type" key (string, "web" or "academic") and a "query" key (string, the search query itself).

Output Format:
- Format your response as a JSON object with these exact keys:
   - "is_sufficient": boolean
   - "knowledge_gap": string (empty if "is_sufficient" is true)
   - "follow_up_queries": list of {"type": ..., "query": ...} objects (empty list if "is_sufficient" is true)`, topic)
}

// buildAnswerPrompt produces the final synthesis instruction. The evidence
// summaries carry citation markers the model must preserve verbatim.
func buildAnswerPrompt(topic string, summaries []string) string {
	return fmt.Sprintf(`Generate a high-quality answer to the user's question based on the provided summaries.

Instructions:
- The current date is %s.
- You are the final step of a multi-step research process, don't mention that you are the final step.
- You have access to all the information gathered from the previous steps.
- Generate a high-quality answer to the user's question based on the provided summaries and the user's question.
- You MUST include all the citation markers from the summaries in the answer correctly, exactly as they appear.

User Context:
- %s

Summaries:
%s`, currentDate(), topic, strings.Join(summaries, "\n\n---\n\n"))
}

// buildContextQAPrompt restricts the model to the supplied grounding text.
func buildContextQAPrompt(question, context string) string {
	return fmt.Sprintf(`You are a specialized AI assistant with expertise in the provided material. Your task is to answer questions based only on the information contained within the "Context" provided below.

Instructions:
- Answer the user's question accurately and concisely using only the information from the "Context".
- Do NOT perform any external web searches, access other documents, or use any information outside of the provided "Context".
- If the answer cannot be found within the "Context", clearly state that the information is not available in the provided material.
- Do not make assumptions or infer information not explicitly stated in the context.

User's Question:
%s

Context:
---
%s
---

Based only on the "Context" above, please provide an answer to the user's question.`, question, context)
}

// buildURLSummaryPrompt asks the model to browse one URL and summarize it.
func buildURLSummaryPrompt(url string) string {
	return fmt.Sprintf(`Your task is to access the content of the provided URL and generate a concise summary.

Instructions:
- Use your browsing tool to fetch the content from the specified URL: %s.
- Read and understand the main points of the content.
- Generate a clear and concise summary of the information found at the URL.
- The summary should capture the key topics and findings.
- State the source URL at the end of your summary.
- The current date is %s, which might be relevant if the content is time-sensitive.
- If the URL cannot be fetched, reply with exactly: UNREACHABLE

Please proceed to fetch and summarize the content of the URL: %s`, url, currentDate(), url)
}
