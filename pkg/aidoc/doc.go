// Package aidoc embeds the aidoc ingestion and retrieval pipeline in a Go program.
//
// Documents (PDF, plain text, Markdown) are split into overlapping chunks,
// embedded and stored in a vector index. Questions are answered from the
// closest chunks by a generative model.
//
//	client, _ := aidoc.New(ctx,
//	    aidoc.WithQdrant("http://localhost:6333"),
//	    aidoc.WithSQLite("data/aidoc.db"),
//	    aidoc.WithOpenAIEmbedder("http://localhost:11434/v1", "ollama", "nomic-embed-text", 768),
//	    aidoc.WithOpenAIAnswerer("http://localhost:11434/v1", "ollama", "llama3.2"),
//	)
//	defer client.Close()
//
//	res, _ := client.IngestFile(ctx, "handbook.pdf")
//	answer, _ := client.Ask(ctx, "How many vacation days do I get?", 3)
//
// Without backend options the client keeps documents and vectors in memory.
package aidoc
