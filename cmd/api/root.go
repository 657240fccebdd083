package main

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"alfredoptarigan/cv-analyzer/internal/config"
)

const app = "cv-analyzer"

var (
	// Used for flags.
	envFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-analyzer scores how well a CV matches a job description",
		Long: `cv-analyzer exposes a REST endpoint (POST /analyze) and a tRPC procedure
(analyzeCV) that extract text from a job description PDF and a CV PDF and ask a
generative model how well they align.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "a dotenv file to load (default is .env in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("LOG_DEBUG", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("LOG_JSON", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	var err error
	if envFile != "" {
		err = config.LoadDotEnv(envFile)
	} else {
		err = config.LoadDotEnv()
	}

	// An explicitly requested env file must exist.
	if err != nil {
		log.Fatal(err)
	}
}
