package domain

import "errors"

// Errors surfaced by the pipeline. Each one is terminal for the action that
// triggered it; callers match them with errors.Is.
var (
	// ErrDocumentParse indicates the upload is not a readable PDF.
	ErrDocumentParse = errors.New("document parse error")

	// ErrIndexBuild indicates the embedding collaborator failed while indexing.
	// The document is rejected as a whole.
	ErrIndexBuild = errors.New("index build error")

	// ErrQueryRewrite indicates the LLM failed to rephrase the question.
	ErrQueryRewrite = errors.New("query rewrite error")

	// ErrAnswerGeneration indicates retrieval or the answering LLM call failed.
	ErrAnswerGeneration = errors.New("answer generation error")

	// ErrNoDocument indicates a question was submitted before a document was loaded.
	ErrNoDocument = errors.New("no document loaded")

	// ErrConfig indicates missing or invalid startup configuration.
	ErrConfig = errors.New("configuration error")
)
