// Package cmd contains the command line applications for the project.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yeisme/snipvault/pkg/configs"
	ctxPkg "github.com/yeisme/snipvault/pkg/context"
	"github.com/yeisme/snipvault/pkg/internal/service"
	"github.com/yeisme/snipvault/pkg/internal/storage"
	"github.com/yeisme/snipvault/pkg/log"
)

var (
	configPath string
	debug      bool
	actor      string

	rootCmd = &cobra.Command{
		Use:           "snipvault",
		Short:         "A file-backed code snippet store with a rebuildable index",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.InitConfig(configPath); err != nil {
				return err
			}

			if debug {
				configs.GetConfig().Log.Level = "debug"
			}

			log.Init()

			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&actor, "user", "", "acting user written to created_by / updated_by")

	registerServeCommands()
	registerSnippetCommands()
	registerIndexCommands()
	registerConfigsCommands()
	registerKVCommands()
	registerMQCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// openService 打开存储并返回服务与带操作者的 context，CLI 不需要事件时关闭 MQ.
func openService(cmd *cobra.Command) (context.Context, *service.SnippetService, func(), error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	mgr, err := storage.Open(ctx, configs.GetConfig(), storage.WithoutMQ())
	if err != nil {
		return nil, nil, nil, err
	}

	if actor != "" {
		ctx = ctxPkg.WithActor(ctx, actor)
	}

	ctx = ctxPkg.WithStorageManager(ctx, mgr)
	closeFn := func() {
		if err := mgr.Close(); err != nil {
			log.Logger().Warn().Err(err).Msg("close storage")
		}
	}

	return ctx, service.NewSnippetService(ctx), closeFn, nil
}
