package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kysee/zkapp/zkapp/circuit"
	"github.com/spf13/cobra"
)

func exportVerifierCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export-verifier",
		Short: "Write a Solidity verifier for the Add contract proofs",
		Long: `Compile the Add contract circuit and write a PLONK Solidity verifier for it.

The keys come from an unsafe test SRS and are regenerated on every run, so
the verifier only accepts proofs produced by the same process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := circuit.Compile()
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			var buf bytes.Buffer
			if err := circuit.ExportSolidity(keys.VerifyingKey, &buf); err != nil {
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write verifier: %w", err)
			}

			fmt.Printf("Solidity verifier generated: %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "contracts/PlonkVerifier.sol", "output file")
	return cmd
}
