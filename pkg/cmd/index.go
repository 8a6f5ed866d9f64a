package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yeisme/snipvault/pkg/internal/service"
	"github.com/yeisme/snipvault/pkg/internal/types"
)

var (
	indexCmd = &cobra.Command{
		Use:   "index",
		Short: "inspect and rebuild the index document",
	}

	indexRebuildCmd = &cobra.Command{
		Use:   "rebuild",
		Short: "rescan the storage directory and rewrite the index document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, done, err := openService(cmd)
			if err != nil {
				return err
			}
			defer done()

			doc, err := svc.Rebuild(ctx, service.TriggerCLI)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "published: %d, draft: %d, error files: %d\n",
				len(doc.Published), len(doc.Draft), len(doc.ErrorFiles))

			for _, f := range doc.ErrorFiles {
				fmt.Fprintln(cmd.OutOrStdout(), "  ! "+f)
			}

			return nil
		},
	}

	indexFormat string

	indexShowCmd = &cobra.Command{
		Use:   "show",
		Short: "print the index document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, done, err := openService(cmd)
			if err != nil {
				return err
			}
			defer done()

			doc, err := svc.Index(ctx)
			if err != nil {
				return err
			}

			return write(cmd.OutOrStdout(), indexFormat, doc)
		},
	}

	settingsSet []string

	indexSettingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "print the global settings, or change them with --set key=value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, svc, done, err := openService(cmd)
			if err != nil {
				return err
			}
			defer done()

			if len(settingsSet) == 0 {
				s, err := svc.Settings(ctx)
				if err != nil {
					return err
				}

				return write(cmd.OutOrStdout(), indexFormat, s)
			}

			req, err := settingsRequest(settingsSet)
			if err != nil {
				return err
			}

			s, err := svc.SaveSettings(ctx, req)
			if err != nil {
				return err
			}

			return write(cmd.OutOrStdout(), indexFormat, s)
		},
	}
)

func settingsRequest(pairs []string) (types.SettingsRequest, error) {
	var req types.SettingsRequest

	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return req, fmt.Errorf("invalid --set %q, want key=value", p)
		}

		switch strings.TrimSpace(k) {
		case "auto_disable":
			req.AutoDisable = v
		case "auto_publish":
			req.AutoPublish = v
		case "remove_on_uninstall":
			req.RemoveOnUninstall = v
		default:
			return req, fmt.Errorf("unknown setting %q", k)
		}
	}

	return req, nil
}

// registerIndexCommands 注册索引相关命令.
func registerIndexCommands() {
	rootCmd.AddCommand(indexCmd)

	indexShowCmd.Flags().StringVarP(&indexFormat, "format", "o", formatYAML, "json or yaml")
	indexSettingsCmd.Flags().StringVarP(&indexFormat, "format", "o", formatYAML, "json or yaml")
	indexSettingsCmd.Flags().StringArrayVar(&settingsSet, "set", nil, "auto_disable|auto_publish|remove_on_uninstall=yes|no")

	indexCmd.AddCommand(indexRebuildCmd, indexShowCmd, indexSettingsCmd)
}
