package cmd

import (
	"log"

	"hh-coverletter/internal/headhunter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "hh-coverletter"
)

type Config struct {
	Search    *headhunter.SearchParams `mapstructure:"search"`
	UserAgent string                   `mapstructure:"user-agent"`
	TokenFile string                   `mapstructure:"token-file"`
	Exclude   *struct {
		Employers []string `mapstructure:"employers"`
	} `mapstructure:"exclude"`
	Letters *struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"letters"`
	Candidate *struct {
		PersonalData string `mapstructure:"personal-data"`
		SkillsFile   string `mapstructure:"skills-file"`
	} `mapstructure:"candidate"`
	Generation *GenerationConfig `mapstructure:"generation"`
}

type GenerationConfig struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	AdequacyRounds    int           `mapstructure:"adequacy-rounds"`
	PunctuationRounds int           `mapstructure:"punctuation-rounds"`
	MaxRetries        int           `mapstructure:"max-retries"`
	FailOpenVerdicts  bool          `mapstructure:"fail-open-verdicts"`
	Ollama            *OllamaConfig `mapstructure:"ollama"`
	Gemini            *GeminiConfig `mapstructure:"gemini"`
}

type OllamaConfig struct {
	URL string `mapstructure:"url"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hh-coverletter is a simple cli for searching vacancies on hh.ru and generating cover letters for them",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("token-file", "HH_TOKEN_FILE"); err != nil {
		log.Fatalf("binding HH_TOKEN_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hh-coverletter.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for the run and export commands. If there is no
	// config, we can skip initialization.
	if runCmd.CalledAs() == "" && exportCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
