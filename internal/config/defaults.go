package config

const (
	defaultInput          = "all_ecco.jsonl.gz"
	defaultOutDir         = "ecco_run_out"
	defaultLogDir         = "eo"
	defaultTotalWorkers   = 1000
	defaultChunkLength    = 300
	defaultMaxFails       = 3
	defaultLedgerBackend  = "files"
	defaultSQLiteName     = "ledger.db"
	defaultLLMBackend     = "openai"
	defaultLLMBaseURL     = "http://localhost:8000/v1/chat/completions"
	defaultLLMModel       = "meta-llama/Llama-3.1-70B-Instruct"
	defaultLLMTemperature = 0.26
	defaultLLMTopK        = 65
	defaultLLMTopP        = 0.66
	defaultLLMMaxTokens   = 3000
	defaultLLMTimeout     = 600
	defaultLLMConcurrency = 8
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultMaxInQueue     = 200
	defaultExpectedTotal  = 207614
	defaultSbatchScript   = "run_vllm_lumi.sh"
	defaultQueuePrefix    = "EB"
	defaultStdoutDir      = "STDOUTERR-ECCO-BIG-RUN"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Input:  defaultInput,
			OutDir: defaultOutDir,
			LogDir: defaultLogDir,
		},
		Shard: Shard{
			Total: defaultTotalWorkers,
		},
		Attempt: Attempt{
			ChunkLength: defaultChunkLength,
			MaxFails:    defaultMaxFails,
			Lock:        true,
		},
		Ledger: Ledger{
			Backend: defaultLedgerBackend,
		},
		LLM: LLM{
			Backend:        defaultLLMBackend,
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Temperature:    defaultLLMTemperature,
			TopK:           defaultLLMTopK,
			TopP:           defaultLLMTopP,
			MaxTokens:      defaultLLMMaxTokens,
			TimeoutSeconds: defaultLLMTimeout,
			Concurrency:    defaultLLMConcurrency,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Monitor: Monitor{
			MaxInQueue:    defaultMaxInQueue,
			ExpectedTotal: defaultExpectedTotal,
			Script:        defaultSbatchScript,
			QueuePrefix:   defaultQueuePrefix,
			StdoutDir:     defaultStdoutDir,
		},
	}
}
