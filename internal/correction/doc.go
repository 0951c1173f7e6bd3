// Package correction turns OCR text chunks into corrected text.
//
// # Backends
//
// The openai backend talks to any OpenAI-compatible chat completions
// endpoint (vLLM, llama.cpp server, hosted APIs). Each chunk becomes one
// request carrying the OCR correction system prompt and the configured
// sampling parameters. The echo backend returns chunks unchanged and is used
// for dry runs and tests.
//
// # Entry Points
//
// NewClient: construct an HTTP client from Config.
// Client.Correct: correct a single chunk.
// Client.HealthCheck: verify the endpoint answers a trivial prompt.
// NewProcessor: fan a document's chunks out over a Client with bounded concurrency.
// FromConfig: build the backend selected in the application config.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions and
// network timeouts with exponential backoff (base 1s, max 10s, up to 5
// attempts by default), honouring Retry-After. Context cancellation aborts
// retries immediately.
package correction
