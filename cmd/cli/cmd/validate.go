package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpr86/CHECKMATE-sub000/pkg/logger"
	"github.com/jpr86/CHECKMATE-sub000/pkg/scenario"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scenario.yaml>",
	Short: "Validate a scenario file",
	Long:  `Load a scenario file and check it for structural and semantic errors without running it`,
	Args:  cobra.ExactArgs(1),
	RunE:  validateScenario,
}

func validateScenario(_ *cobra.Command, args []string) error {
	scn, err := scenario.Load(args[0])
	if err != nil {
		return fmt.Errorf("scenario %s is invalid: %w", args[0], err)
	}

	logger.Success(fmt.Sprintf("Scenario %q is valid", scn.Name))
	logger.LogKeyValue("Sides", fmt.Sprintf("%d", len(scn.Sides)))
	logger.LogKeyValue("Platforms", fmt.Sprintf("%d", scn.PlatformCount()))
	logger.LogKeyValue("End time", fmt.Sprintf("%.1f s", scn.EndTime))
	return nil
}
