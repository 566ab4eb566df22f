// Package setup runs the interactive configuration wizard.
package setup

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/kxmarket/config"
)

// DefaultConfigFile is where the wizard writes when no --config path is given.
const DefaultConfigFile = "kx.gen.yaml"

// ErrCancelled is returned when the user declines to save.
var ErrCancelled = errors.New("setup cancelled by user")

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers raw wizard input.
type answers struct {
	tickInterval   string
	seed           string
	initialBalance string
	feeRate        string
	storage        string
	stateDir       string
	redisAddr      string
	webAddr        string
}

func defaultAnswers() answers {
	d := config.Default()
	return answers{
		tickInterval:   d.TickInterval.String(),
		seed:           "0",
		initialBalance: d.InitialBalance.String(),
		feeRate:        d.FeeRate.String(),
		storage:        d.Storage,
		stateDir:       d.StateDir,
		redisAddr:      d.Redis.Addr,
		webAddr:        d.WebAddr,
	}
}

func screen(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("KX MARKET CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(step))
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) (string, error) {
	if path == "" {
		path = DefaultConfigFile
	}
	a := defaultAnswers()
	var confirm bool

	screen("STEP 1: SIMULATION")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Tune the market before the opening bell.\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Tick interval").
				Description("How often prices move (e.g. 2s, 500ms)").
				Value(&a.tickInterval).
				Validate(validateInterval),
			huh.NewInput().
				Title("Random seed").
				Description("0 picks a new seed on every start").
				Value(&a.seed).
				Validate(validateSeed),
		),
	).Run()
	if err != nil {
		return "", err
	}

	screen("STEP 2: ACCOUNT")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Starting cash (KD)").
				Value(&a.initialBalance).
				Validate(validatePositiveDecimal),
			huh.NewInput().
				Title("Commission rate").
				Description("Fraction of notional, 0.001 = 0.1%").
				Value(&a.feeRate).
				Validate(validateFeeRate),
		),
	).Run()
	if err != nil {
		return "", err
	}

	screen("STEP 3: STORAGE")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should the account be kept?").
				Options(
					huh.NewOption("Local file", config.StorageFile),
					huh.NewOption("Redis", config.StorageRedis),
				).
				Value(&a.storage),
		),
	).Run()
	if err != nil {
		return "", err
	}

	storageField := huh.NewInput().
		Title("State directory").
		Value(&a.stateDir).
		Validate(validateNotEmpty)
	if a.storage == config.StorageRedis {
		storageField = huh.NewInput().
			Title("Redis address").
			Description("host:port").
			Value(&a.redisAddr).
			Validate(validateNotEmpty)
	}
	err = huh.NewForm(
		huh.NewGroup(
			storageField,
			huh.NewInput().
				Title("HTTP listen address").
				Value(&a.webAddr).
				Validate(validateNotEmpty),
		),
	).Run()
	if err != nil {
		return "", err
	}

	screen("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Tick: %s\nSeed: %s\nCash: %s KD\nFee: %s\nStorage: %s\nListen: %s\n",
		a.tickInterval, a.seed, a.initialBalance, a.feeRate, a.storage, a.webAddr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return "", err
	}
	if !confirm {
		return "", ErrCancelled
	}

	cfg, err := buildConfig(a)
	if err != nil {
		return "", err
	}
	if err := config.Save(path, cfg); err != nil {
		return "", err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nOpening the market...", path)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return path, nil
}

func buildConfig(a answers) (config.Config, error) {
	cfg := config.Default()

	interval, err := time.ParseDuration(strings.TrimSpace(a.tickInterval))
	if err != nil {
		return config.Config{}, errors.Wrap(err, "tick interval")
	}
	cfg.TickInterval = interval

	if cfg.Seed, err = strconv.ParseUint(strings.TrimSpace(a.seed), 10, 64); err != nil {
		return config.Config{}, errors.Wrap(err, "seed")
	}
	if cfg.InitialBalance, err = decimal.NewFromString(strings.TrimSpace(a.initialBalance)); err != nil {
		return config.Config{}, errors.Wrap(err, "initial balance")
	}
	if cfg.FeeRate, err = decimal.NewFromString(strings.TrimSpace(a.feeRate)); err != nil {
		return config.Config{}, errors.Wrap(err, "fee rate")
	}

	cfg.Storage = a.storage
	cfg.StateDir = strings.TrimSpace(a.stateDir)
	cfg.Redis.Addr = strings.TrimSpace(a.redisAddr)
	cfg.WebAddr = strings.TrimSpace(a.webAddr)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func validateInterval(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a duration like 2s")
	}
	if d < 10*time.Millisecond {
		return fmt.Errorf("must be at least 10ms")
	}
	return nil
}

func validateSeed(s string) error {
	if _, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64); err != nil {
		return fmt.Errorf("must be a non-negative integer")
	}
	return nil
}

func validatePositiveDecimal(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func validateFeeRate(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("must be between 0 and 1")
	}
	return nil
}

func validateNotEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}
