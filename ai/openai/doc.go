// Package openai implements the ai interfaces against OpenAI-compatible APIs
// (OpenAI, Ollama, LocalAI, vLLM) through langchaingo.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"), // /v1 added automatically
//	    ai.WithEmbeddingModel("nomic-embed-text"),
//	    ai.WithAnalyzerModel("qwen2.5:7b"),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "sample text")
//	analysis, err := provider.BriefAnalyzer().AnalyzeBrief(ctx, briefText)
package openai
