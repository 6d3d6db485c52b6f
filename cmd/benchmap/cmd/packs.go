package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/beetlebugorg/benchmap/internal/ingest"
)

var (
	packsManifest string
	packsJSON     bool
	packsBaseURL  string
)

// packsCmd groups state pack maintenance
var packsCmd = &cobra.Command{
	Use:   "packs",
	Short: "List, verify and index state packs",
}

var packsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the state packs in the packs directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		packs, err := selectedPacks()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if packsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(packs)
		}

		for _, p := range packs {
			fmt.Fprintf(out, "%-3s %-22s %-10s %10d  %s\n", p.Code, p.Name, p.Version, p.Bytes, filepath.Base(p.Path))
		}
		fmt.Fprintf(out, "%d packs in %s\n", len(packs), cfg.Data.PacksDir)
		return nil
	},
}

var packsVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check pack sizes and SHA-256 digests against the manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		packs, err := selectedPacks()
		if err != nil {
			return err
		}
		m, err := ingest.ReadManifest(manifestPath())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		errs := ingest.VerifyPacks(packs, m)
		for _, err := range errs {
			fmt.Fprintf(out, "%s %v\n", color.RedString("FAIL"), err)
		}
		fmt.Fprintf(out, "%d packs checked, %d failed\n", len(packs), len(errs))
		if len(errs) > 0 {
			return fmt.Errorf("%d packs failed verification", len(errs))
		}
		return nil
	},
}

var packsManifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Write manifest.json describing the packs directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		packs, err := selectedPacks()
		if err != nil {
			return err
		}
		m, err := ingest.BuildManifest(packs, packsBaseURL, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return err
		}
		path := manifestPath()
		if err := ingest.WriteManifest(path, m); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d packs to %s\n", len(m.States), path)
		return nil
	},
}

func init() {
	packsCmd.PersistentFlags().StringVarP(&packsManifest, "manifest", "m", "", "manifest path (default data.manifest or <packs>/manifest.json)")
	packsListCmd.Flags().BoolVar(&packsJSON, "json", false, "print JSON")
	packsManifestCmd.Flags().StringVar(&packsBaseURL, "base-url", "", "URL prefix for pack downloads")

	packsCmd.AddCommand(packsListCmd, packsVerifyCmd, packsManifestCmd)
	rootCmd.AddCommand(packsCmd)
}

// selectedPacks scans the packs directory and applies the enabled states.
func selectedPacks() ([]ingest.Pack, error) {
	all, err := ingest.ScanDir(cfg.Data.PacksDir, cfg.Data.Strict)
	if err != nil {
		return nil, err
	}
	packs, err := ingest.SelectPacks(all, cfg.Data.States)
	if errors.Is(err, ingest.ErrUnknownPack) {
		return nil, fmt.Errorf("%w (have %d packs in %s)", err, len(all), cfg.Data.PacksDir)
	}
	return packs, err
}

func manifestPath() string {
	switch {
	case packsManifest != "":
		return packsManifest
	case cfg.Data.Manifest != "":
		return cfg.Data.Manifest
	default:
		return filepath.Join(cfg.Data.PacksDir, "manifest.json")
	}
}
