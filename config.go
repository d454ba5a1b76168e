package nutriplan

import "time"

type ModelConfig struct {
	ModelID     string  `env:"MODEL_ID,required"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=2048"`
	Temperature float32 `env:"TEMPERATURE,default=0.2"`
	TopP        float32 `env:"TOP_P,default=0.9"`
}

type PlannerConfig struct {
	CorpusPath         string `env:"CORPUS_PATH,default=artifacts/recipes.json"`
	CorpusS3Bucket     string `env:"CORPUS_S3_BUCKET"`
	CorpusS3Key        string `env:"CORPUS_S3_KEY"`
	Generator          string `env:"GENERATOR,default=bedrock"`
	BaseOllamaEndpoint string `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	MaxIterations      int    `env:"MAX_ITERATIONS,default=6"`

	Workers         int           `env:"BATCH_WORKERS,default=4"`
	CacheTTL        time.Duration `env:"CACHE_TTL,default=5m"`
	CacheCapacity   int           `env:"CACHE_CAPACITY,default=1024"`
	SearchTimeout   time.Duration `env:"SEARCH_TIMEOUT,default=10s"`
	GenerateTimeout time.Duration `env:"GENERATE_TIMEOUT,default=90s"`
	Tolerance       float64       `env:"CALORIE_TOLERANCE,default=0.2"`

	StrictValidation bool `env:"STRICT_VALIDATION,default=true"`
	RejectInvalid    bool `env:"REJECT_INVALID,default=false"`
	LogValidation    bool `env:"LOG_VALIDATION,default=true"`

	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`
	SlackChannel    string `env:"SLACK_CHANNEL,default=#nutrition-plans"`
}
