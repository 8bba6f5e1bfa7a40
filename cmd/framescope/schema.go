package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"framescope/internal/config"
	"framescope/internal/report"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of report.json",
	Run: func(cmd *cobra.Command, args []string) {
		data, err := report.SchemaJSON()
		if err != nil {
			logrus.WithError(err).Fatalf("build schema")
		}
		fmt.Println(string(data))
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		conf, err := config.LoadConfig(configFile)
		if err != nil {
			logrus.Fatal("initConfig error, ", err.Error())
		}
		data, err := conf.YAML()
		if err != nil {
			logrus.WithError(err).Fatalf("marshal config")
		}
		fmt.Print(string(data))
	},
}
