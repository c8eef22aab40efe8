package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
)

var rootCmd = &cobra.Command{
	Use:               "kstore",
	Short:             "KStore Redis accessor",
	Long:              "KStore - 基于 Redis 的键值与列表访问工具",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径 (可选)")
	rootCmd.AddCommand(
		existsCmd(),
		getCmd(),
		setCmd(),
		delCmd(),
		rpushCmd(),
		lrangeCmd(),
		lremCmd(),
		expireCmd(),
		ttlCmd(),
		watchCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
