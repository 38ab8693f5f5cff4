package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML overlay. It only carries retrieval tunables;
// endpoints and credentials come from the environment.
type fileConfig struct {
	Retrieval struct {
		TopK            int     `yaml:"top_k"`
		RerankTopK      int     `yaml:"rerank_top_k"`
		RRFK            int     `yaml:"rrf_k"`
		RerankThreshold float64 `yaml:"rerank_threshold"`
		FusionThreshold float64 `yaml:"fusion_threshold"`
	} `yaml:"retrieval"`
	Chunking struct {
		SizeTokens    int     `yaml:"size_tokens"`
		CharsPerToken int     `yaml:"chars_per_token"`
		OverlapPct    float64 `yaml:"overlap_pct"`
		Enrichment    bool    `yaml:"contextual_enrichment"`
	} `yaml:"chunking"`
	Transcript struct {
		Turns       int `yaml:"turns"`
		QueryTurns  int `yaml:"query_turns"`
		MaxSessions int `yaml:"max_sessions"`
	} `yaml:"transcript"`
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// Pre-fill with current values so keys absent from the file keep them.
	var fc fileConfig
	fc.Retrieval.TopK = cfg.RetrievalTopK
	fc.Retrieval.RerankTopK = cfg.RerankTopK
	fc.Retrieval.RRFK = cfg.RRFK
	fc.Retrieval.RerankThreshold = cfg.RerankThreshold
	fc.Retrieval.FusionThreshold = cfg.FusionThreshold
	fc.Chunking.SizeTokens = cfg.ChunkSizeTokens
	fc.Chunking.CharsPerToken = cfg.ChunkCharsPerToken
	fc.Chunking.OverlapPct = cfg.ChunkOverlapPct
	fc.Chunking.Enrichment = cfg.ContextualEnrichment
	fc.Transcript.Turns = cfg.TranscriptTurns
	fc.Transcript.QueryTurns = cfg.TranscriptQueryTurns
	fc.Transcript.MaxSessions = cfg.TranscriptMaxSessions

	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg.RetrievalTopK = fc.Retrieval.TopK
	cfg.RerankTopK = fc.Retrieval.RerankTopK
	cfg.RRFK = fc.Retrieval.RRFK
	cfg.RerankThreshold = fc.Retrieval.RerankThreshold
	cfg.FusionThreshold = fc.Retrieval.FusionThreshold
	cfg.ChunkSizeTokens = fc.Chunking.SizeTokens
	cfg.ChunkCharsPerToken = fc.Chunking.CharsPerToken
	cfg.ChunkOverlapPct = fc.Chunking.OverlapPct
	cfg.ContextualEnrichment = fc.Chunking.Enrichment
	cfg.TranscriptTurns = fc.Transcript.Turns
	cfg.TranscriptQueryTurns = fc.Transcript.QueryTurns
	cfg.TranscriptMaxSessions = fc.Transcript.MaxSessions
	return nil
}
