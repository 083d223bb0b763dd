// 程序入口：lbs 命令行工具。读取配置、打开工作区并分派子命令；无网络服务面
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"lbs-core/internal/config"
	"lbs-core/internal/logger"
	"lbs-core/internal/workspace"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app：单次命令执行共享的配置与输出
type app struct {
	out io.Writer
	cfg config.Config
}

// with：打开工作区执行 fn，无论成败都释放工作区
func (a *app) with(ctx context.Context, fn func(ws *workspace.Workspace) error) (err error) {
	ws, err := workspace.Open(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ws.Dispose(); err == nil {
			err = cerr
		}
	}()
	return fn(ws)
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	var backend string

	cmd := &cobra.Command{
		Use:           "lbs",
		Short:         "Influence groups for social baseline studies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.Setup()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if backend != "" {
				cfg.Backend = backend
			}
			a.cfg = cfg
			logger.L().Debug("cli_command", "cmd", cmd.CommandPath(), "backend", cfg.Backend)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&backend, "backend", "", "storage backend override (memory, sqlite, redis, postgres)")

	cmd.AddCommand(
		centrosCmd(a),
		gruposCmd(a),
		seccionesCmd(a),
		claveCmd(a),
		snapshotCmd(a),
		clearCmd(a),
		kvCmd(a),
	)
	return cmd
}
