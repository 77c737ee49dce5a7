// meridian-sim runs a deterministic staking simulation and prints a
// summary of the resulting state.
package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/meridianprotocol/meridian-core/go/common/logging"
	"github.com/meridianprotocol/meridian-core/go/staking"
	"github.com/meridianprotocol/meridian-core/go/staking/api"
	"github.com/meridianprotocol/meridian-core/go/staking/fixtures"
)

const (
	cfgEras       = "eras"
	cfgValidators = "validators"
	cfgNominators = "nominators"
	cfgSeed       = "seed"
	cfgLogLevel   = "log.level"
)

var (
	rootCmd = &cobra.Command{
		Use:   "meridian-sim",
		Short: "meridian staking simulator",
		RunE:  doRun,
	}

	rootFlags = flag.NewFlagSet("", flag.ContinueOnError)

	logLevel = logging.LevelInfo
)

func doRun(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(os.Stderr, logging.FmtLogfmt, logLevel, nil); err != nil {
		return err
	}
	logger := logging.GetLogger("cmd/sim")

	rng := rand.New(rand.NewSource(viper.GetInt64(cfgSeed)))

	population := &fixtures.Population{
		Validators:          viper.GetInt(cfgValidators),
		Nominators:          viper.GetInt(cfgNominators),
		ValidatorBond:       1_000,
		NominatorBond:       500,
		TargetsPerNominator: 2,
		Balance:             100_000,
	}

	app, err := staking.New(population.Genesis())
	if err != nil {
		return err
	}
	if err = population.Apply(app); err != nil {
		return err
	}

	eras := viper.GetInt(cfgEras)
	params, err := app.Parameters()
	if err != nil {
		return err
	}

	var session api.SessionIndex
	for era := 0; era < eras; era++ {
		session += params.SessionsPerEra
		if err = app.NewEra(session); err != nil {
			return fmt.Errorf("new era at session %d: %w", session, err)
		}

		currentEra, _ := app.CurrentEra()
		validators, _ := app.ElectedValidators(currentEra)

		// Award points proportional to simulated block production.
		points := make(map[api.Address]uint64, len(validators))
		for _, v := range validators {
			points[v] = uint64(10 + rng.Intn(10))
		}
		if err = app.AwardEraPoints(points); err != nil {
			return err
		}

		// The occasional offence.
		if len(validators) > 0 && rng.Intn(10) == 0 {
			offender := validators[rng.Intn(len(validators))]
			if err = app.OnOffence(staking.RootOrigin(), offender, 5_000, nil); err != nil {
				logger.Warn("offence rejected", "err", err)
			}
		}

		// Claim last era's rewards.
		if currentEra > 1 {
			prev := currentEra - 1
			claimants, _ := app.ElectedValidators(prev)
			for _, v := range claimants {
				err = app.PayoutValidator(staking.SignedOrigin(v), v, prev)
				if err != nil {
					logger.Warn("payout rejected", "validator", v, "err", err)
				}
			}
		}
	}

	return printSummary(app, population)
}

func printSummary(app *staking.Application, population *fixtures.Population) error {
	currentEra, err := app.CurrentEra()
	if err != nil {
		return err
	}
	pool, err := app.CommonPool()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Stash", "Role", "Balance", "Active", "Total"})
	for i := 0; i < population.Validators+population.Nominators; i++ {
		stash := fixtures.StashAddress(i)
		role := "validator"
		if i >= population.Validators {
			role = "nominator"
		}

		account, aerr := app.Account(stash)
		if aerr != nil {
			return aerr
		}
		active, total := "-", "-"
		if ledger, lerr := app.LedgerForStash(stash); lerr == nil && ledger != nil {
			active = ledger.Active.String()
			total = ledger.Total.String()
		}
		table.Append([]string{
			stash.String()[:12],
			role,
			account.General.Balance.String(),
			active,
			total,
		})
	}
	table.Render()

	fmt.Printf("era: %d  common pool: %s\n", currentEra, pool)

	return nil
}

func main() {
	rootFlags.Var(&logLevel, cfgLogLevel, "log level")
	rootFlags.Int(cfgEras, 10, "number of eras to simulate")
	rootFlags.Int(cfgValidators, 6, "number of validator candidates")
	rootFlags.Int(cfgNominators, 12, "number of nominators")
	rootFlags.Int64(cfgSeed, 1, "simulation RNG seed")
	_ = viper.BindPFlags(rootFlags)
	rootCmd.PersistentFlags().AddFlagSet(rootFlags)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}
