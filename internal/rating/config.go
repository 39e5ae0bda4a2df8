package rating

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the rating model. It is loaded once and
// passed around immutably; the model never reads ambient state.
type Config struct {
	CrewBaseWinPercentage float64 `yaml:"crew_base_win_percentage"`
	ImpBaseWinPercentage  float64 `yaml:"imp_base_win_percentage"`
	MinWinProbability     float64 `yaml:"min_win_probability"`
	MaxWinProbability     float64 `yaml:"max_win_probability"`

	// Bounded logistic curve: f(x) = a*ln(b*x + c) + d
	WinProbA float64 `yaml:"win_prob_a"`
	WinProbB float64 `yaml:"win_prob_b"`
	WinProbC float64 `yaml:"win_prob_c"`
	WinProbD float64 `yaml:"win_prob_d"`

	KFactor float64 `yaml:"k_factor"`

	StartingMMR         float64 `yaml:"current_mmr"`
	StartingCrewmateMMR float64 `yaml:"crewmate_current_mmr"`
	StartingImpostorMMR float64 `yaml:"impostor_current_mmr"`

	CrewCorrectVoteBonus       float64 `yaml:"crew_correct_vote_bonus"`
	CrewIncorrectVotePenalty   float64 `yaml:"crew_incorrect_vote_penalty"`
	CrewGotVotedPenalty        float64 `yaml:"crew_got_voted_penalty"`
	CrewTaskBonus              float64 `yaml:"crew_task_bonus"`
	CrewWrongCritPenalty       float64 `yaml:"crew_wrong_crit_penalty"`
	CrewCorrectEjectBonus      float64 `yaml:"crew_correct_eject_bonus"`
	CrewRightCritLossBonus     float64 `yaml:"crew_right_crit_loss_bonus"`
	CrewWinSurvivalBonus       float64 `yaml:"crew_win_survival_bonus"`
	CrewLossSurvivalPenalty    float64 `yaml:"crew_loss_survival_penalty"`
	CrewSoloImpSurvivalPenalty float64 `yaml:"crew_solo_imp_survival_penalty"`

	ImpEarlyEjectPenalty float64 `yaml:"imp_early_eject_penalty"`
	ImpSoloBonus         float64 `yaml:"imp_solo_bonus"`
	ImpGotVotedBonus     float64 `yaml:"imp_got_voted_bonus"`
	ImpSoloKillBonus     float64 `yaml:"imp_solo_kill_bonus"`
	ImpSoloWinBonus      float64 `yaml:"imp_solo_win_bonus"`
	ImpKillBonus         float64 `yaml:"imp_kill_bonus"`

	MinPerformance          float64 `yaml:"min_performance"`
	DiedFirstWinPerformance float64 `yaml:"died_first_win_performance"`
	MaxLossPerformance      float64 `yaml:"max_loss_performance"`
}

// Default returns the season baseline used when no config file is supplied.
func Default() Config {
	return Config{
		CrewBaseWinPercentage: 0.58,
		ImpBaseWinPercentage:  0.42,
		MinWinProbability:     0.10,
		MaxWinProbability:     0.90,

		WinProbA: 0.043290409437842466,
		WinProbB: 7.855256175054392,
		WinProbC: 98.05742514755777,
		WinProbD: -0.19883086302819628,

		KFactor: 32,

		StartingMMR:         1000,
		StartingCrewmateMMR: 1000,
		StartingImpostorMMR: 1000,

		CrewCorrectVoteBonus:       0.1,
		CrewIncorrectVotePenalty:   0.1,
		CrewGotVotedPenalty:        0.1,
		CrewTaskBonus:              0.02,
		CrewWrongCritPenalty:       0.5,
		CrewCorrectEjectBonus:      0.02,
		CrewRightCritLossBonus:     0.2,
		CrewWinSurvivalBonus:       0.02,
		CrewLossSurvivalPenalty:    0.02,
		CrewSoloImpSurvivalPenalty: 0.02,

		ImpEarlyEjectPenalty: 0.5,
		ImpSoloBonus:         0.25,
		ImpGotVotedBonus:     0.1,
		ImpSoloKillBonus:     0.1,
		ImpSoloWinBonus:      0.5,
		ImpKillBonus:         0.1,

		MinPerformance:          0.25,
		DiedFirstWinPerformance: 0.25,
		MaxLossPerformance:      2.0,
	}
}

// LoadConfig reads the rating constants from a YAML file. Fields missing
// from the file keep their Default values.
func LoadConfig(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading rating config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing rating config: %w", err)
	}
	return cfg, nil
}
