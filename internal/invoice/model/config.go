package model

// ================ Config ================
type SessionConfig struct {
	TTL     string `envconfig:"SESSION_TTL" default:"24h"`
	LockTTL string `envconfig:"SESSION_LOCK_TTL" default:"60s"`
	// LockWait is how long a turn waits for the sender's previous turn before replying busy.
	LockWait string `envconfig:"SESSION_LOCK_WAIT" default:"2s"`
}

type ExtractorConfig struct {
	Provider string `envconfig:"EXTRACTOR_PROVIDER" default:"gemini"`
	Timeout  string `envconfig:"EXTRACTOR_TIMEOUT" default:"12s"`
	Gemini   struct {
		APIKey      string  `envconfig:"GEMINI_API_KEY"`
		BaseURL     string  `envconfig:"GEMINI_BASE_URL"`
		Model       string  `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
		MaxTokens   int     `envconfig:"GEMINI_MAX_TOKENS" default:"2000"`
		Temperature float32 `envconfig:"GEMINI_TEMPERATURE" default:"0.1"`
	}
	OpenAI struct {
		APIKey      string  `envconfig:"OPENAI_API_KEY"`
		BaseURL     string  `envconfig:"OPENAI_BASE_URL" default:"https://api.groq.com/openai/v1"`
		Model       string  `envconfig:"OPENAI_MODEL" default:"llama-3.3-70b-versatile"`
		Temperature float64 `envconfig:"OPENAI_TEMPERATURE" default:"0.1"`
	}
}

type InvoiceConfig struct {
	TaxRate       float64 `envconfig:"INVOICE_TAX_RATE" default:"18"`
	State         string  `envconfig:"INVOICE_STATE"`
	ReverseCharge string  `envconfig:"INVOICE_REVERSE_CHARGE" default:"NO"`
	SellerName    string  `envconfig:"INVOICE_SELLER_NAME" default:"My Business"`
	SellerAddress string  `envconfig:"INVOICE_SELLER_ADDRESS"`
	SellerGSTIN   string  `envconfig:"INVOICE_SELLER_GSTIN"`
	Template      string  `envconfig:"INVOICE_TEMPLATE" default:"tax-invoice"`
	ClientStore   string  `envconfig:"INVOICE_CLIENT_STORE" default:"redis"`
}

type StorageConfig struct {
	Backend         string `envconfig:"DOCUMENT_STORE" default:"local"`
	Dir             string `envconfig:"DOCUMENT_DIR" default:"invoices"`
	Bucket          string `envconfig:"DOCUMENT_BUCKET"`
	CredentialsFile string `envconfig:"DOCUMENT_CREDENTIALS_FILE"`
}

type WebhookConfig struct {
	TwilioAuthToken string `envconfig:"TWILIO_AUTH_TOKEN"`
	// ValidateSignature can be switched off for local runs without a Twilio account.
	ValidateSignature bool `envconfig:"TWILIO_VALIDATE_SIGNATURE" default:"true"`
}
