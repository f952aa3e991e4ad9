package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/canopy-network/canopy-dex/cmd/rpc"
	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/fsm"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/canopy-network/canopy-dex/store"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rootCmd = &cobra.Command{
	Use:   "canopy-dex",
	Short: "the canopy dex trading engine",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(rpc.SoftwareVersion)
	},
}

var (
	client, config, l = &rpc.Client{}, lib.Config{}, lib.LoggerI(nil)
	DataDir = ""
)

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.PersistentFlags().StringVar(&DataDir, "data-dir", lib.DefaultDataDirPath(), "custom data directory location")
	// the data directory flag is only known once cobra parsed the command line
	cobra.OnInitialize(func() {
		config = InitializeDataDirectory(DataDir, lib.NewDefaultLogger())
		l = lib.NewLogger(lib.LoggerConfig{Level: config.GetLogLevel()}, config.DataDirPath)
		client = rpc.NewClient(config.RPCUrl, config.AdminRPCUrl, config.ChainId)
	})
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "start the dex trading engine",
	Run: func(cmd *cobra.Command, args []string) {
		Start()
	},
}

// Start() is the entrypoint of the application
func Start() {
	// initialize the metrics server
	metrics := lib.NewMetricsServer(config.MetricsConfig, config.DataDirPath, l)
	// create a new database object from the config
	db, err := store.New(config.StoreConfig, l)
	if err != nil {
		l.Fatal(err.Error())
	}
	// initialize the state machine
	sm, err := fsm.New(config, db, metrics, l)
	if err != nil {
		l.Fatal(err.Error())
	}
	// a fresh database starts from the genesis book
	if sm.LastHeight() == 0 {
		if err = sm.NewFromGenesisFile(); err != nil {
			l.Fatal(err.Error())
		}
	}
	l.Infof("Chain %s at height %d", config.ChainId, sm.LastHeight())
	// start the metrics server
	metrics.Start()
	// run the rpc server until a kill signal is received
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGABRT)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rpc.NewServer(sm, config, l).Start(ctx) })
	if e := g.Wait(); e != nil {
		l.Errorf("RPC server stopped with err: %s", e.Error())
	}
	l.Infof("Exit command received")
	// gracefully stop the metrics server
	metrics.Stop()
	if err = db.Close(); err != nil {
		l.Error(err.Error())
	}
	os.Exit(0)
}

// InitializeDataDirectory() populates the data directory with configuration and genesis files if missing
func InitializeDataDirectory(dataDirPath string, log lib.LoggerI) (c lib.Config) {
	// make the data dir if missing
	if err := os.MkdirAll(dataDirPath, os.ModePerm); err != nil {
		log.Fatal(err.Error())
	}
	// make the config.json file if missing
	configFilePath := filepath.Join(dataDirPath, lib.ConfigFilePath)
	if _, err := os.Stat(configFilePath); errors.Is(err, os.ErrNotExist) {
		log.Infof("Creating %s file", lib.ConfigFilePath)
		if err = lib.DefaultConfig().WriteToFile(configFilePath); err != nil {
			log.Fatal(err.Error())
		}
	}
	// create the genesis file if missing
	genesisFilePath := filepath.Join(dataDirPath, lib.GenesisFilePath)
	if _, err := os.Stat(genesisFilePath); errors.Is(err, os.ErrNotExist) {
		log.Infof("Creating %s file", lib.GenesisFilePath)
		WriteDefaultGenesisFile(dataDirPath)
	}
	// load the config object
	c, err := lib.NewConfigFromFile(configFilePath)
	if err != nil {
		log.Fatal(err.Error())
	}
	// set the data-directory
	c.DataDirPath = dataDirPath
	return
}

// WriteDefaultGenesisFile() writes an empty book
func WriteDefaultGenesisFile(dataDirPath string) {
	genesis := &fsm.GenesisState{Positions: []*dex.Position{}, Auctions: []dex.DutchAuctionDescription{}}
	if err := lib.SaveJSONToFile(genesis, dataDirPath, lib.GenesisFilePath); err != nil {
		panic(err)
	}
}

func writeToConsole(a any, err error) {
	if err != nil {
		l.Fatal(err.Error())
	}
	switch v := a.(type) {
	case *uint64:
		a = *v
	case *string:
		a = *v
	}
	switch a.(type) {
	case int, uint32, uint64:
		p := message.NewPrinter(language.English)
		if _, err := p.Printf("%d\n", a); err != nil {
			l.Fatal(err.Error())
		}
	case string:
		fmt.Println(a)
	default:
		s, err := lib.MarshalJSONIndentString(a)
		if err != nil {
			l.Fatal(err.Error())
		}
		fmt.Println(s)
	}
}
