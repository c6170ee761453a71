package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rumsystem/mstnode/internal/pkg/api"
	"github.com/rumsystem/mstnode/internal/pkg/chain"
	"github.com/rumsystem/mstnode/internal/pkg/cli"
	"github.com/rumsystem/mstnode/internal/pkg/conn/p2p"
	"github.com/rumsystem/mstnode/internal/pkg/conn/pubsubconn"
	keystore "github.com/rumsystem/mstnode/internal/pkg/crypto"
	"github.com/rumsystem/mstnode/internal/pkg/logging"
	"github.com/rumsystem/mstnode/internal/pkg/mstprocessor"
	"github.com/rumsystem/mstnode/internal/pkg/options"
	"github.com/rumsystem/mstnode/internal/pkg/storage"
	"github.com/rumsystem/mstnode/internal/pkg/utils"
	"github.com/rumsystem/mstnode/pkg/codec"
	"github.com/rumsystem/mstnode/pkg/consensus/yac"
	localcrypto "github.com/rumsystem/mstnode/pkg/crypto"
	"github.com/rumsystem/mstnode/pkg/mst"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	nodeFlag     cli.Config
	nodeViper    *viper.Viper
	nodeSignalch chan os.Signal
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run mst node",
	Run: func(cmd *cobra.Command, args []string) {
		nodeFlag.PeerName = nodeViper.GetString("peername")
		nodeFlag.ConfigDir = nodeViper.GetString("configdir")
		nodeFlag.DataDir = nodeViper.GetString("datadir")
		nodeFlag.APIPort = nodeViper.GetUint("apiport")
		nodeFlag.KeyHex = nodeViper.GetString("key")
		nodeFlag.KeyStoreDir = nodeViper.GetString("keystoredir")
		nodeFlag.KeyStoreName = nodeViper.GetString("keystorename")
		nodeFlag.KeyStorePwd = nodeViper.GetString("keystorepwd")

		if err := nodeFlag.ListenAddresses.Set(strings.Join(nodeViper.GetStringSlice("listen"), ",")); err != nil {
			logger.Fatalf("parse listen addr list failed: %s", err)
		}
		if err := nodeFlag.BootstrapPeers.Set(strings.Join(nodeViper.GetStringSlice("peer"), ",")); err != nil {
			logger.Fatalf("parse bootstrap peer addr list failed: %s", err)
		}

		if nodeFlag.KeyStorePwd == "" {
			nodeFlag.KeyStorePwd = os.Getenv("MST_KSPASSWD")
		}
		nodeFlag.IsDebug = isDebug
		runNode(nodeFlag)
	},
}

func init() {
	rootCmd.AddCommand(nodeCmd)

	flags := nodeCmd.Flags()
	flags.SortFlags = false

	flags.String("peername", "peer", "peername")
	flags.String("configdir", "./config/", "config dir")
	flags.String("datadir", "./data/", "data dir")
	flags.StringSlice("listen", []string{"/ip4/127.0.0.1/tcp/4215"}, "Adds a multiaddress to the listen list")
	flags.StringSlice("peer", nil, "bootstrap peer address")
	flags.Uint("apiport", 5215, "api server listen port")
	flags.String("keystoredir", "./keystore/", "keystore dir")
	flags.String("keystorename", "default", "keystore name")
	flags.String("keystorepwd", "", "keystore password, or set MST_KSPASSWD")
	flags.String("key", "", "hex encoded secp256k1 private key, overrides the keystore")

	nodeViper = viper.New()
	nodeViper.SetEnvPrefix("MST")
	nodeViper.AutomaticEnv()
	if err := nodeViper.BindPFlags(flags); err != nil {
		logger.Fatalf("viper bind flags failed: %s", err)
	}
}

func loadKeypair(config cli.Config) (*localcrypto.Keypair, error) {
	if config.KeyHex != "" {
		return localcrypto.KeypairFromHex(config.KeyHex)
	}
	ks, err := keystore.InitDirKeyStore(config.KeyStoreName, config.KeyStoreDir)
	if err != nil {
		return nil, err
	}
	return ks.LoadOrCreateSignKey(config.PeerName, config.KeyStorePwd)
}

func runNode(config cli.Config) {
	color.Green("Version: %s", utils.GetVersion())

	nodeSignalch = make(chan os.Signal, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	peername := config.PeerName

	if err := utils.EnsureDir(config.DataDir); err != nil {
		logger.Fatalf("check or create directory: %s failed: %s", config.DataDir, err)
	}

	nodeoptions, err := options.Load(config.ConfigDir, peername)
	if err != nil {
		logger.Fatalf("load options failed: %s", err)
	}

	keypair, err := loadKeypair(config)
	if err != nil {
		logger.Fatalf("load node key failed: %s", err)
	}

	dbManager, err := storage.CreateDb(filepath.Join(config.DataDir, peername))
	if err != nil {
		logger.Fatalf("create db failed: %s", err)
	}
	indexer := storage.NewBadgerIndexer(dbManager.IndexDb)
	lastHeight, err := indexer.LastBlockHeight()
	if err != nil {
		logger.Fatalf("read last block height failed: %s", err)
	}

	pipeline := chain.NewPipeline(indexer, lastHeight)
	factory := codec.NewSignatureFactory()
	voter := yac.NewCryptoProvider(keypair, yac.NewVoteConverter(factory, logging.Logger("yac")))
	pipeline.SetCommitHandler(func(block *chain.Block) {
		vote, err := voter.GetVote(yac.YacHash{
			VoteRound:  yac.Round{BlockRound: block.Height},
			VoteHashes: yac.VoteHashes{ProposalHash: block.Hash(), BlockHash: block.Hash()},
		})
		if err != nil {
			logger.Warnf("sign vote for block %d failed: %s", block.Height, err)
			return
		}
		logger.Infof("voted for block %d round %s hash %s", block.Height, vote.Hash.VoteRound, block.Hash())
	})

	node, err := p2p.NewNode(ctx, peername, nodeoptions.NetworkName, keypair, config.ListenAddresses)
	if err != nil {
		logger.Fatalf("create p2p node failed: %s", err)
	}
	for _, addr := range node.FullAddrs() {
		logger.Infof("Host created, listen on: %s", addr)
	}

	completer := mst.NewDefaultCompleter(nodeoptions.ExpirationTime())
	converter := codec.NewBatchConverter(factory, nodeoptions.MaxBatchSize)
	psconn, err := pubsubconn.JoinChannel(node.Pubsub, node.PeerID, nodeoptions.Topic, converter, completer)
	if err != nil {
		logger.Fatalf("join topic %s failed: %s", nodeoptions.Topic, err)
	}

	processor, err := mstprocessor.NewProcessor(completer, psconn,
		mstprocessor.WithHandlers(mstprocessor.Handlers{
			OnCompleted: pipeline.Enqueue,
			OnExpired:   pipeline.Reject,
		}),
		mstprocessor.WithCompletedCacheSize(nodeoptions.CompletedCacheSize),
		mstprocessor.WithSignatureVerification(nodeoptions.VerifySignatures),
	)
	if err != nil {
		logger.Fatalf("create mst processor failed: %s", err)
	}
	psconn.Start(ctx, processor.OnStateReceived)

	peers := config.BootstrapPeers
	if len(peers) == 0 {
		peers, err = utils.StringsToAddrs(nodeoptions.BootstrapPeers)
		if err != nil {
			logger.Fatalf("parse bootstrap peers failed: %s", err)
		}
	}
	if n := node.Bootstrap(ctx, peers); n == 0 && len(peers) > 0 {
		logger.Warnf("no bootstrap peer reachable")
	}

	go processor.Run(ctx, nodeoptions.GossipInterval(), nodeoptions.ExpiryCheckInterval())
	go pipeline.Run(ctx, nodeoptions.BlockInterval())

	h := &api.Handler{
		Processor: processor,
		Index:     indexer,
		Factory:   factory,
		GitCommit: utils.GetVersion(),
	}
	e := api.StartAPIServer(fmt.Sprintf(":%d", config.APIPort), h, config.IsDebug)

	//attach signal
	signal.Notify(nodeSignalch, os.Interrupt, syscall.SIGTERM)
	signalType := <-nodeSignalch
	signal.Stop(nodeSignalch)

	logger.Infof("On Signal <%s>", signalType)
	logger.Infof("Exit command received. Exiting...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("api server shutdown failed: %s", err)
	}

	// indices of batches completed since the last tick
	if _, err := pipeline.Commit(); err != nil {
		logger.Warnf("final commit failed: %s", err)
	}

	psconn.Close()
	if err := node.Close(); err != nil {
		logger.Warnf("close p2p node failed: %s", err)
	}
	indexer.Close()
	dbManager.CloseDb()
}
