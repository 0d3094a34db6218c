package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"livestock-purchasing/internal/adapters/repl"
	"livestock-purchasing/internal/app"
	"livestock-purchasing/internal/config"
	"livestock-purchasing/internal/core"
	"livestock-purchasing/internal/masterdata"
	"livestock-purchasing/internal/remote"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// BuildService wires one REST client per purchase kind and a cached
// master-data provider from cfg.
func BuildService(cfg *config.Config) (app.ApplicationService, error) {
	opts := remote.Options{BaseURL: cfg.API.BaseURL, Token: cfg.API.Token, Timeout: cfg.API.Timeout}

	var (
		backends []app.PurchaseBackend
		options  core.OptionProvider
	)
	for _, kind := range core.Kinds() {
		p, err := cfg.Profile(kind)
		if err != nil {
			return nil, err
		}
		c, err := remote.New(p, opts)
		if err != nil {
			return nil, err
		}
		backends = append(backends, c)
		if options == nil {
			options = c
		}
	}
	return app.NewAppService(backends, masterdata.NewCachedProvider(options, cfg.MasterData.CacheTTL)), nil
}

// NewRootCommand builds the purchasectl command tree.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "purchasectl",
		Short: "Edit cattle, miscellaneous and payment purchases against the purchasing API",
		Long: `purchasectl edits purchases kept by the purchasing API.

Example Usage:
  purchasectl repl                              # Interactive editing session
  purchasectl show misc <purchase-id>           # Print a purchase as JSON
  purchasectl options supplier                  # List a master-data selector
  purchasectl export cattle <id> --out lot.xlsx # Export a purchase to a spreadsheet`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to the YAML configuration file")

	load := func() (app.ApplicationService, error) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		return BuildService(cfg)
	}

	root.AddCommand(
		replCommand(load),
		showCommand(load),
		optionsCommand(load),
		exportCommand(load),
	)
	return root
}

// Execute runs the root command with os.Args and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type loader func() (app.ApplicationService, error)

func replCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive editing session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := load()
			if err != nil {
				return err
			}
			repl.Run(cmd.Context(), svc, cmd.InOrStdin(), cmd.OutOrStdout())
			return nil
		},
	}
}

func showCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "show <kind> <purchase-id>",
		Short: "Print a purchase with its lines as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, s, err := open(cmd.Context(), load, args[0], args[1])
			if err != nil {
				return err
			}
			defer svc.CloseSession(s.SessionID)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(toPurchaseJSON(s))
		},
	}
}

func optionsCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "options <office|supplier|item|classification|bank>",
		Short: "List one master-data selector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := load()
			if err != nil {
				return err
			}
			result, err := svc.ListOptions(cmd.Context(), core.OptionKind(strings.ToLower(args[0])))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, o := range result.Options {
				fmt.Fprintf(out, "%s\t%s\n", o.Value, o.Label)
			}
			return nil
		},
	}
}

func exportCommand(load loader) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export <kind> <purchase-id>",
		Short: "Export a purchase to an XLSX workbook",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, s, err := open(cmd.Context(), load, args[0], args[1])
			if err != nil {
				return err
			}
			defer svc.CloseSession(s.SessionID)

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer f.Close()
				w = f
			}
			if err := svc.ExportPurchase(cmd.Context(), s.SessionID, w); err != nil {
				return err
			}
			if outPath != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s purchase %s to %s\n", s.Profile.Kind, s.Header.ID, outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "purchase.xlsx", `Output file, or "-" for stdout`)
	return cmd
}

func open(ctx context.Context, load loader, kindArg, id string) (app.ApplicationService, *app.SessionResult, error) {
	kind, err := core.ParseKind(strings.ToLower(kindArg))
	if err != nil {
		return nil, nil, err
	}
	svc, err := load()
	if err != nil {
		return nil, nil, err
	}
	s, err := svc.OpenPurchase(ctx, kind, id)
	if err != nil {
		return nil, nil, err
	}
	return svc, s, nil
}

type totalsJSON struct {
	Quantity decimal.Decimal `json:"quantity"`
	Weight   decimal.Decimal `json:"weight"`
	Price    decimal.Decimal `json:"price"`
}

type lineJSON struct {
	core.LineFields
	MarkupDisplay string `json:"markup_display"`
}

type purchaseJSON struct {
	Kind   core.PurchaseKind `json:"kind"`
	ID     string            `json:"id"`
	Header core.HeaderFields `json:"header"`
	Totals totalsJSON        `json:"totals"`
	Lines  []lineJSON        `json:"lines"`
}

func toPurchaseJSON(s *app.SessionResult) purchaseJSON {
	out := purchaseJSON{
		Kind:   s.Profile.Kind,
		ID:     s.Header.ID,
		Header: s.Header.HeaderFields,
		Totals: totalsJSON(s.Header.Totals),
		Lines:  make([]lineJSON, 0, len(s.Lines)),
	}
	for _, l := range s.Lines {
		out.Lines = append(out.Lines, lineJSON{LineFields: l.Fields(), MarkupDisplay: l.MarkupPercent})
	}
	return out
}
