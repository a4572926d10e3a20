// Command tdp runs the taxi differential privacy demo: the API server, the
// database scripts and the Beam pickup count.
package main

import (
	"flag"
	"os"

	log "github.com/golang/glog"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// env defaults of the persistent flags
const (
	envAddr      = "TDP_ADDR"
	envDataDir   = "TDP_DATA_DIR"
	envPolicy    = "TDP_POLICY"
	envMyCnf     = "TDP_MYCNF"
	envMechanism = "TDP_MECHANISM"
)

// options shared by every subcommand
type globalOptions struct {
	dataDir string
	policy  string
	myCnf   string
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "tdp",
		Short:         "Differential privacy demo on New York taxi data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// cobra has set the values already; mark the go flags parsed for glog
			return flag.CommandLine.Parse(nil)
		},
	}
	root.PersistentFlags().StringVar(&opts.dataDir, "data", getenv(envDataDir, "data"), "directory of the CSV datasets")
	root.PersistentFlags().StringVar(&opts.policy, "policy", getenv(envPolicy, ""), "YAML sensitivity policy, built-in policy if empty")
	root.PersistentFlags().StringVar(&opts.myCnf, "mycnf", getenv(envMyCnf, ""), "my.cnf with the MySQL credentials, no database if empty")

	// glog registers -v, -logtostderr and friends on the standard flag set
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	root.AddCommand(
		newServeCmd(opts),
		newInitDBCmd(opts),
		newCleanDBCmd(opts),
		newBatchCmd(opts),
	)
	return root
}

func main() {
	// a missing .env is fine, the environment may be set already
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warningf("Error %s when loading .env", err)
	}

	err := newRootCmd().Execute()
	log.Flush()
	if err != nil {
		log.Exit(err)
	}
}
