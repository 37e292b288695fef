/*
 MIT License

 (C) Copyright 2026 RedMane Technology LLC

 Permission is hereby granted, free of charge, to any person obtaining a
 copy of this software and associated documentation files (the "Software"),
 to deal in the Software without restriction, including without limitation
 the rights to use, copy, modify, merge, publish, distribute, sublicense,
 and/or sell copies of the Software, and to permit persons to whom the
 Software is furnished to do so, subject to the following conditions:

 The above copyright notice and this permission notice shall be included
 in all copies or substantial portions of the Software.

 THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
 THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR
 OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
 ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
 OTHER DEALINGS IN THE SOFTWARE.
*/

// Package cmd holds the ipam CLI: the API server plus the operational
// export and backup helpers.
package cmd

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "ipam"

var cfgFile string

// Config is the resolved server configuration; flags, environment, and
// the config file all feed it through viper.
type Config struct {
	Listen            string        `mapstructure:"listen"`
	Store             string        `mapstructure:"store"`
	DataDir           string        `mapstructure:"data-dir"`
	EtcdEndpoints     []string      `mapstructure:"etcd-endpoints"`
	AzureSubscription string        `mapstructure:"azure-subscription"`
	InventoryFile     string        `mapstructure:"inventory-file"`
	ShutdownGrace     time.Duration `mapstructure:"shutdown-grace"`
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ipam",
	Short: "IPAM engine. Hierarchical IPv4 address space management.",
	Long: `
	The ipam engine partitions an enterprise's IPv4 address space into
	Spaces and Blocks, tracks attached virtual networks, external
	networks, and CIDR reservations, and answers availability queries
	under concurrent operators.

	Serve the REST control surface with 'ipam serve'; export and back up
	the per-tenant documents with 'ipam export' and 'ipam backup'.`,
	Run: func(cmd *cobra.Command, args []string) {
		viper.BindPFlags(cmd.Flags())
		cmd.Usage()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		cfgFile, _ = filepath.Abs(cfgFile)
	} else {
		cfgFile = "ipam.yaml"
		cfgFile, _ = filepath.Abs(cfgFile)
	}

	viper.SetConfigFile(cfgFile)

	if err := viper.ReadInConfig(); err == nil {
		log.Println("Using config file:", viper.ConfigFileUsed())
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadConfig unmarshals the merged settings. Durations are accepted in
// Go notation ("10s"); list settings split on commas.
func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	return cfg, err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
}
