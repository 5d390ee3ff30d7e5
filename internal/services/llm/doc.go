// Package llm wraps an OpenRouter-compatible chat completion API used to
// synthesize presentation code from scene prompts.
//
// The client retries transient transport failures with exponential backoff
// and honors Retry-After on rate-limit responses. Responses are returned as
// raw text; nothing here inspects or trusts the generated code.
package llm
