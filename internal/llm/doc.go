// Package llm is the language model fallback for account suggestions. It
// talks to OpenAI or Anthropic over HTTP, renders prompts from embedded
// templates and turns free-form replies into typed suggestions.
package llm
