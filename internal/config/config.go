package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the assistant needs. It is loaded once at process
// start and passed into component constructors; nothing reads the environment
// after Load returns.
type Config struct {
	// Wake word
	PicoAPIKey   string
	WakeWordPath string

	// OpenAI / Realtime
	OpenAIAPIKey          string
	AgentVoice            string
	AgentInstructionsPath string

	// Logging
	LogLevel string
	LogFile  string

	// Audio devices (-1 means system default)
	InputDeviceID  int
	OutputDeviceID int

	// Cheese tool
	KidNameA string
	KidNameB string

	// LIFX lights tool
	LifxAuthToken string
	LifxLights    string // JSON object: friendly name -> LIFX selector

	// Todoist list tool
	TodoistAPIKey             string
	TodoistTodoProjectID      string
	TodoistShoppingProjectID  string
	TodoistTodoDueDetails     string
	TodoistShoppingDueDetails string

	// Bay Area 511 transit tool
	BayArea511APIKey       string
	BayArea511Agency       string
	BayArea511StopCode     string
	BayArea511FriendlyName string

	// Perplexity search tool
	PerplexityAPIKey string

	// Recipes tool
	RecipesFolder string

	// Analytics
	AnalyticsURL    string
	AnalyticsSource string
	AnalyticsAPIKey string
}

// Load reads configuration from the environment, with an optional .env file
// merged in first. A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("AGENT_VOICE", "shimmer")
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("INPUT_DEVICE_ID", -1)
	v.SetDefault("OUTPUT_DEVICE_ID", -1)

	cfg := Config{
		PicoAPIKey:   v.GetString("PICO_API_KEY"),
		WakeWordPath: v.GetString("WAKE_WORD_PATH"),

		OpenAIAPIKey:          v.GetString("OPENAI_API_KEY"),
		AgentVoice:            v.GetString("AGENT_VOICE"),
		AgentInstructionsPath: v.GetString("AGENT_INSTRUCTIONS_PATH"),

		LogLevel: v.GetString("LOG_LEVEL"),
		LogFile:  v.GetString("LOG_FILE"),

		InputDeviceID:  v.GetInt("INPUT_DEVICE_ID"),
		OutputDeviceID: v.GetInt("OUTPUT_DEVICE_ID"),

		KidNameA: v.GetString("KID_NAME_A"),
		KidNameB: v.GetString("KID_NAME_B"),

		LifxAuthToken: v.GetString("LIFX_AUTH_TOKEN"),
		LifxLights:    v.GetString("LIFX_LIGHTS"),

		TodoistAPIKey:             v.GetString("TODOIST_API_KEY"),
		TodoistTodoProjectID:      v.GetString("TODOIST_TODO_PROJECT_ID"),
		TodoistShoppingProjectID:  v.GetString("TODOIST_SHOPPING_PROJECT_ID"),
		TodoistTodoDueDetails:     v.GetString("TODOIST_TODO_DUE_DETAILS"),
		TodoistShoppingDueDetails: v.GetString("TODOIST_SHOPPING_DUE_DETAILS"),

		BayArea511APIKey:       v.GetString("BAY_AREA_511_API_KEY"),
		BayArea511Agency:       v.GetString("BAY_AREA_511_AGENCY"),
		BayArea511StopCode:     v.GetString("BAY_AREA_511_STOP_CODE"),
		BayArea511FriendlyName: v.GetString("BAY_AREA_511_FRIENDLY_NAME"),

		PerplexityAPIKey: v.GetString("PERPLEXITY_API_KEY"),

		RecipesFolder: v.GetString("RECIPES_FOLDER"),

		AnalyticsURL:    v.GetString("ANALYTICS_URL"),
		AnalyticsSource: v.GetString("ANALYTICS_SOURCE"),
		AnalyticsAPIKey: v.GetString("ANALYTICS_API_KEY"),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if strings.TrimSpace(c.PicoAPIKey) == "" {
		missing = append(missing, "PICO_API_KEY")
	}
	if strings.TrimSpace(c.WakeWordPath) == "" {
		missing = append(missing, "WAKE_WORD_PATH")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
