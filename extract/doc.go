// Package extract defines the field-extraction capability consumed by the
// turn processor: the Extractor interface, its request/result types, a
// deterministic keyword extractor usable without network access, and a Chain
// decorator adding bounded timeouts, retries with backoff and degradation to
// the keyword extractor when a provider fails.
//
// Provider-backed implementations live in sub-packages (extract/anthropic,
// extract/openai); select one at wiring time and hand it to the Chain.
package extract
