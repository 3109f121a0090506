package env

import (
	"os"
)

const (
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	AgentSecretKey   = "AGENT_SECRET"
	WidgetSecretKey  = "WIDGET_SECRET"
	SessionRedisURL  = "SESSION_REDIS_URL"
	SessionRedisPass = "SESSION_REDIS_PASS"
	OpenAIKey        = "OPENAI_API_KEY"
	OpenAIModel      = "OPENAI_MODEL"
	AIMode           = "AI_MODE"
	AISystemPrompt   = "AI_SYSTEM_PROMPT"
	ConsolePassword  = "CONSOLE_PASSWORD"
	RetentionDays    = "RETENTION_DAYS"
	CookieNoticeText = "COOKIE_NOTICE_TEXT"
	ListenAddr       = "LISTEN_ADDR"
	WebUrl           = "WEB_URL"
)

// MustValidate panics unless every variable the server cannot run without
// is present. Called once from main so test binaries can import packages
// below this one without a configured environment.
func MustValidate() {
	required := []string{
		AWSRegion,
		AWSID,
		AWSSecret,
		// AWSToken,
		AgentSecretKey,
		WidgetSecretKey,
		SessionRedisURL,
	}
	for _, key := range required {
		if os.Getenv(key) == "" {
			panic("env: required environment variable not set: " + key)
		}
	}
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}
