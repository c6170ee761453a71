package p2p

import (
	"context"
	"fmt"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	p2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	tcp "github.com/libp2p/go-libp2p/p2p/transport/tcp"
	maddr "github.com/multiformats/go-multiaddr"
	"github.com/rumsystem/mstnode/internal/pkg/logging"
	localcrypto "github.com/rumsystem/mstnode/pkg/crypto"
)

const ProtocolPrefix string = "/mst"

var networklog = logging.Logger("network")

type Node struct {
	PeerID      peer.ID
	Host        host.Host
	NodeName    string
	NetworkName string
	Pubsub      *pubsub.PubSub
}

// NewNode starts a libp2p host identified by the secp256k1 key of the node
// and a gossipsub router speaking the protocol of networkName
func NewNode(ctx context.Context, nodename string, networkName string, key *localcrypto.Keypair, listenAddresses []maddr.Multiaddr) (*Node, error) {
	priv, err := p2pcrypto.UnmarshalSecp256k1PrivateKey(ethcrypto.FromECDSA(key.PrivateKey))
	if err != nil {
		return nil, err
	}

	host, err := libp2p.New(
		libp2p.Identity(priv),
		libp2p.ListenAddrs(listenAddresses...),
		libp2p.Transport(tcp.NewTCPTransport),
		libp2p.Ping(false),
	)
	if err != nil {
		return nil, err
	}

	customprotocol := protocol.ID(fmt.Sprintf("%s/%s/meshsub/1.1.0", ProtocolPrefix, networkName))
	protos := []protocol.ID{customprotocol}
	features := func(feat pubsub.GossipSubFeature, proto protocol.ID) bool {
		return proto == customprotocol
	}
	networklog.Infof("Enable protocol: %s", customprotocol)

	ps, err := pubsub.NewGossipSub(ctx, host,
		pubsub.WithMessageSignaturePolicy(pubsub.StrictSign),
		pubsub.WithPeerExchange(true),
		pubsub.WithPeerOutboundQueueSize(128),
		pubsub.WithGossipSubProtocols(protos, features),
	)
	if err != nil {
		host.Close()
		return nil, err
	}

	return &Node{PeerID: host.ID(), Host: host, NodeName: nodename, NetworkName: networkName, Pubsub: ps}, nil
}

// Bootstrap connects to every peer of addrs, failures are logged
func (node *Node) Bootstrap(ctx context.Context, addrs []maddr.Multiaddr) int {
	var wg sync.WaitGroup
	var mu sync.Mutex
	connected := 0
	for _, peerAddr := range addrs {
		peerinfo, err := peer.AddrInfoFromP2pAddr(peerAddr)
		if err != nil {
			networklog.Warnf("invalid peer address %s: %s", peerAddr, err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := node.Host.Connect(ctx, *peerinfo); err != nil {
				networklog.Warn(err)
				return
			}
			networklog.Infof("Connection established with node %s", peerinfo.ID)
			mu.Lock()
			connected++
			mu.Unlock()
		}()
	}
	wg.Wait()
	return connected
}

// FullAddrs returns the listen addresses of the host with its peer id
func (node *Node) FullAddrs() []maddr.Multiaddr {
	var addrs []maddr.Multiaddr
	for _, addr := range node.Host.Addrs() {
		full, err := maddr.NewMultiaddr(fmt.Sprintf("%s/p2p/%s", addr, node.PeerID))
		if err != nil {
			continue
		}
		addrs = append(addrs, full)
	}
	return addrs
}

func (node *Node) Close() error {
	return node.Host.Close()
}
