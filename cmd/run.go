package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"hh-coverletter/internal/ai"
	"hh-coverletter/internal/ai/gemini"
	"hh-coverletter/internal/ai/ollama"
	"hh-coverletter/internal/cache"
	"hh-coverletter/internal/filtering"
	"hh-coverletter/internal/headhunter"
	"hh-coverletter/internal/letter"
	"hh-coverletter/internal/letters"
	"hh-coverletter/internal/logger"
	"hh-coverletter/internal/review"
	"hh-coverletter/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes               = "Yes"
	PromptNo                = "No"
	PromptReportByEmployers = "Report by employers"
	PromptVacanciesToFile   = "Dump vacancies to file"

	defaultLettersDir = "letters"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Generate cover letters for these vacancies?",
	Items: []string{PromptYes, PromptNo, PromptReportByEmployers, PromptVacanciesToFile},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search vacancies and generate cover letters for new ones",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("do-not-skip-processed", "f", false, "do not skip vacancies that already have a letter")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation if found suitable vacancies")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the hh-coverletter", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if err := validateConfig(config); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	profile, err := loadProfile(config)
	if err != nil {
		logger.Fatal("loading candidate profile", zap.Error(err))
	}

	prompts, err := letter.NewBuilder(profile)
	if err != nil {
		logger.Fatal("building prompt templates", zap.Error(err))
	}

	generator, err := buildGenerator(ctx, config.Generation, logger)
	if err != nil {
		logger.Fatal("building generation backend", zap.Error(err))
	}

	token, err := resolveToken(config)
	if err != nil {
		logger.Fatal(
			"loading headhunter token",
			zap.Error(err),
			zap.String("hint", "set HH_TOKEN_FILE environment variable or the 'token-file' key in the configuration file"),
		)
	}

	hh := headhunter.New(ctx, logger, token)

	if config.UserAgent != "" {
		hh.UserAgent = config.UserAgent
	}

	lettersDir := defaultLettersDir
	if config.Letters != nil && config.Letters.Dir != "" {
		lettersDir = config.Letters.Dir
	}

	store := letters.NewStore(lettersDir)

	processed, err := cache.New(store.Dir())
	if err != nil {
		logger.Fatal("scanning letters directory", zap.Error(err))
	}

	logger.Info("scanned letters directory",
		zap.String("dir", store.Dir()),
		zap.Int("known_vacancies", processed.Len()),
	)

	logger.Info("starting the search", zap.String("search", config.Search.Text))

	vacancies, err := hh.Search(config.Search)
	if err != nil {
		logger.Fatal("getting available vacancies", zap.Error(err))
	}

	logger.Info("getting vacancies", zap.Int("count", vacancies.Len()))

	if vacancies.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no vacancies found"))
		return
	}

	vacancies.SortByPublished()

	steps := prepareFilters(cmd, config)
	for _, status := range filtering.Describe(steps) {
		logger.Debug("filter configured",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
		)
	}

	filtered, err := filtering.Run(ctx,
		&filtering.Config{Employers: excludedEmployers(config)},
		filtering.Deps{Logger: logger, Processed: processed},
		steps,
		vacancies,
	)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}
	vacancies = filtered

	if vacancies.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no vacancies left after filters"))
		return
	}

	loop := review.NewLoop(generator, prompts, review.Config{
		AdequacyRounds:    config.Generation.AdequacyRounds,
		PunctuationRounds: config.Generation.PunctuationRounds,
		FailOpenVerdicts:  config.Generation.FailOpenVerdicts,
	}, logger)

	handler := review.NewHandler(loop, store, processed, logger)

	action := PromptYes
	for {
		var err error
		if cmd.Flag("auto-approve").Value.String() == "false" {
			_, action, err = prompt.Run()
			if err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}

		logger.Info("current list of vacancies", zap.Int("count", vacancies.Len()))

		if err := handleAction(ctx, action, hh, handler, logger, vacancies); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(ctx context.Context, action string, hh *headhunter.Client, handler *review.Handler, logger *zap.Logger, vacancies *headhunter.Vacancies) error {
	switch action {
	case PromptYes:
		enrichDescriptions(hh, logger, vacancies)

		summary := handler.Handle(ctx, vacancies)
		logger.Info("run finished",
			zap.Int("accepted", summary.Accepted),
			zap.Int("rejected_adequacy", summary.RejectedAdequacy),
			zap.Int("rejected_punctuation", summary.RejectedPunctuation),
			zap.Int("backend_failures", summary.BackendFailures),
			zap.Int("skipped", summary.Skipped),
		)
		return errExit
	case PromptNo:
		logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return errExit
	case PromptReportByEmployers:
		pretty, _ := json.MarshalIndent(vacancies.ReportByEmployer(), "", "  ")
		logger.Info(string(pretty), zap.Int("vacancies count", vacancies.Len()))
		return nil
	case PromptVacanciesToFile:
		filename, err := vacancies.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// enrichDescriptions fetches the full vacancy record for each item, since the
// search listing omits the description. The detail response carries no
// snippet block, so only the description is merged into the listing record.
// Best effort: the snippet is enough for a draft when the detail fetch fails.
func enrichDescriptions(hh *headhunter.Client, logger *zap.Logger, vacancies *headhunter.Vacancies) {
	for _, vacancy := range vacancies.Items {
		full, err := hh.GetVacancy(vacancy.ID)
		if err != nil {
			logger.Debug("fetching detailed vacancy failed",
				zap.String("vacancy_id", vacancy.ID),
				zap.Error(err),
			)
			continue
		}
		vacancy.Description = full.Description
	}
}

func validateConfig(config *Config) error {
	if config == nil {
		return errors.New("config is required")
	}

	if config.Search == nil || strings.TrimSpace(config.Search.Text) == "" {
		return errors.New("search text is required under search.text")
	}

	if config.Candidate == nil || strings.TrimSpace(config.Candidate.PersonalData) == "" {
		return errors.New("candidate personal data is required under candidate.personal-data")
	}

	if strings.TrimSpace(config.Candidate.SkillsFile) == "" {
		return errors.New("candidate skills file is required under candidate.skills-file")
	}

	gen := config.Generation
	if gen == nil {
		return errors.New("generation section is required")
	}

	if strings.TrimSpace(gen.Model) == "" {
		return errors.New("generation model is required under generation.model")
	}

	if gen.AdequacyRounds < 0 || gen.PunctuationRounds < 0 {
		return errors.New("generation round budgets must not be negative")
	}

	switch strings.TrimSpace(strings.ToLower(gen.Provider)) {
	case "", "ollama", "gemini":
	default:
		return fmt.Errorf("unsupported generation provider: %s", gen.Provider)
	}

	return nil
}

func loadProfile(config *Config) (letter.Profile, error) {
	skills, err := os.ReadFile(config.Candidate.SkillsFile)
	if err != nil {
		return letter.Profile{}, fmt.Errorf("reading skills file: %w", err)
	}

	return letter.Profile{
		PersonalData: config.Candidate.PersonalData,
		Skills:       strings.TrimSpace(string(skills)),
	}, nil
}

// buildGenerator picks the backend by generation.provider. Ollama is the
// default since it needs no credentials.
func buildGenerator(ctx context.Context, cfg *GenerationConfig, log *zap.Logger) (ai.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider == "" {
		provider = "ollama"
	}

	genLogger := logger.WithGeneration(log, provider, cfg.Model)

	switch provider {
	case "ollama":
		url := ""
		if cfg.Ollama != nil {
			url = cfg.Ollama.URL
		}
		return ollama.NewClient(url, cfg.Model, cfg.MaxRetries, genLogger)
	case "gemini":
		if cfg.Gemini == nil {
			return nil, errors.New("gemini configuration is required when the gemini provider is selected")
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set generation.gemini.api-key-file)", err)
		}

		return gemini.NewClient(ctx, apiKey, cfg.Model, cfg.MaxRetries, genLogger)
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Provider)
	}
}

// resolveToken loads the optional API token. Vacancy search works without
// one, so an unset token file is not an error.
func resolveToken(config *Config) (string, error) {
	tokenFile := strings.TrimSpace(config.TokenFile)
	if tokenFile == "" {
		tokenFile = strings.TrimSpace(viper.GetString("token-file"))
	}

	if tokenFile == "" {
		return "", nil
	}

	return secrets.Load(secrets.Source{
		Name: "headhunter token",
		File: tokenFile,
	})
}

func excludedEmployers(config *Config) []string {
	if config.Exclude == nil {
		return nil
	}
	return config.Exclude.Employers
}

func prepareFilters(cmd *cobra.Command, config *Config) []filtering.Filter {
	ignoreProcessed := false
	if cmd != nil {
		flag := cmd.Flag("do-not-skip-processed")
		if flag != nil && strings.EqualFold(flag.Value.String(), "true") {
			ignoreProcessed = true
		}
	}

	steps := []filtering.Filter{
		filtering.NewWithTest(),
		filtering.NewEmployers(),
		filtering.NewProcessed(ignoreProcessed),
	}

	if config.Search == nil || !config.Search.OnlyWithoutTests {
		filtering.DisableByName(steps, "with_test", "search.only_without_tests is not set")
	}

	return steps
}
