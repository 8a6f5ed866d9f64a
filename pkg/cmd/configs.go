package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/snipvault/pkg/app"
	"github.com/yeisme/snipvault/pkg/configs"
)

var configFormat string

var (
	// config 子命令.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "config subcommands",
	}

	// 打印当前使用的配置文件路径.
	pathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the path of the current config file",
		Run: func(cmd *cobra.Command, args []string) {
			v := configs.GetViper()
			if v == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "config not initialized")
				return
			}

			if f := v.ConfigFileUsed(); f != "" {
				fmt.Fprintln(cmd.OutOrStdout(), f)
				return
			}

			fmt.Fprintln(cmd.OutOrStdout(), "no config file used (defaults and SNIPVAULT_* env only)")
		},
	}

	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "print the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := configs.GetViper()
			if v == nil {
				return fmt.Errorf("config not initialized")
			}

			if debug {
				v.Debug()
			}

			return write(cmd.OutOrStdout(), configFormat, configs.GetConfig())
		},
	}

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "validate the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Validate(configs.GetConfig()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "config ok")

			return nil
		},
	}
)

// registerConfigsCommands 注册 CLI 子命令.
func registerConfigsCommands() {
	debugCmd.Flags().StringVarP(&configFormat, "output", "o", "yaml", "output format: json or yaml")

	configCmd.AddCommand(pathCmd, debugCmd, checkCmd)
	rootCmd.AddCommand(configCmd)
}
