package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/veldworks/enrich-cli/internal/store"
)

var (
	evidenceOrg       string
	evidenceLimit     int
	evidenceRollbacks bool
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Inspect the evidence ledger",
	Long: `Lists evidence entries (or rollback actions with --rollbacks) from the
configured ledger, newest first, as JSON on stdout.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ledger, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer ledger.Close()

		filter := store.EvidenceFilter{
			Organisation: evidenceOrg,
			Limit:        evidenceLimit,
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if evidenceRollbacks {
			rollbacks, err := ledger.ListRollbacks(ctx, filter)
			if err != nil {
				return err
			}
			return enc.Encode(rollbacks)
		}

		entries, err := ledger.ListEvidence(ctx, filter)
		if err != nil {
			return err
		}
		return enc.Encode(entries)
	},
}

func init() {
	evidenceCmd.Flags().StringVar(&evidenceOrg, "org", "", "filter by organisation name")
	evidenceCmd.Flags().IntVar(&evidenceLimit, "limit", 50, "max entries to list (0 = all)")
	evidenceCmd.Flags().BoolVar(&evidenceRollbacks, "rollbacks", false, "list rollback actions instead of evidence")
	rootCmd.AddCommand(evidenceCmd)
}
