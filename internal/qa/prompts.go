package qa

// rewriteSystemPrompt instructs the model to rephrase, never answer.
const rewriteSystemPrompt = "You are a helpful assistant that rewrites vague or short questions into " +
	"clear and complete ones for querying a document. ONLY rewrite, do not answer."

const rewriteUserPrompt = "Original: %s\nRewritten:"

const answerPrompt = `Context information is below.
---------------------
%s
---------------------
Given the context information and not prior knowledge, answer the query.
Query: %s
Answer: `
