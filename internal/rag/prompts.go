package rag

// Prompt templates for each generation call in the pipeline. Wording matters:
// the optimizer must emit only the rewritten question, the relevance gate must
// answer with a single yes/no token, and the final instruction block must be
// the last section of the assembled prompt.

const standaloneQueryPrompt = `You are an expert at rewriting questions. Given the following chat conversation and a follow-up user query, rewrite the query into a complete, standalone question that includes all relevant context from the conversation.

Rules:
- Preserve all clinical or contextually important details.
- Do NOT include any instructions, explanations, or extra text.
- Output ONLY the rewritten standalone question. No preamble, labels, or other formatting.

Chat History:
%s

Follow-Up Input:
%s

Standalone question:`

const relevancePrompt = `Determine if the following new message is relevant enough to update the given summary.

[Current Summary]
%s

[New Message]
%s

Instructions:
- If the message contains new or important information related to the summary, any new goal or topic discussed, say "Yes".
- If the message is irrelevant or too trivial or already covered in the current summary, say "No".

Reply with only "Yes" or "No".`

const mergeSummaryPrompt = `You are an AI assistant tasked with updating a summary with new relevant conversation content.

[Existing Summary]
%s

[New Message]
%s

Instructions:
- Concisely incorporate the new information into the existing summary.
- Maintain clarity and avoid redundancy.
- Keep the total summary within approximately 1500 tokens.

Updated Summary:`

const freshSummaryPrompt = `You are an AI assistant tasked with summarizing a conversation between a human and an AI assistant.
Please write a clear and concise summary of the following conversation.

Conversation:
%s

Instructions:
- Focus on key questions, responses, decisions, and outcomes.
- Keep the tone professional and informative.
- Avoid including filler phrases or unrelated small talk.
- Limit the summary to approximately 1250 tokens or fewer.`

const titlePrompt = `You are an AI assistant that creates concise and descriptive titles for user queries.

Task: Generate a 5-token title (no more, no less) that clearly summarizes the user's query.
Avoid punctuation unless absolutely necessary, and use relevant keywords.

Query:
%s

5-token Title:`

// Final prompt assembly.

const systemFraming = "You are a trusted, careful AI medical assistant."

const responseInstructions = `Instructions:
- Use only the above mentioned information if available.
- If unsure, refer the user to a doctor.
- Do not mention or reference any documents, memory, context source, or prior chat turns in your answer.

Response:`
