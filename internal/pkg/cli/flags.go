package cli

import (
	"strings"

	maddr "github.com/multiformats/go-multiaddr"
)

// AddrList is a comma separated list of multiaddresses usable as a
// command line flag
type AddrList []maddr.Multiaddr

func (al *AddrList) String() string {
	strs := make([]string, len(*al))
	for i, addr := range *al {
		strs[i] = addr.String()
	}
	return strings.Join(strs, ",")
}

func (al *AddrList) Set(value string) error {
	addrlist := strings.Split(value, ",")

	for _, v := range addrlist {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		addr, err := maddr.NewMultiaddr(v)
		if err != nil {
			return err
		}
		*al = append(*al, addr)
	}
	return nil
}

func (al *AddrList) Type() string {
	return "addrlist"
}

// Config holds the flags of the node command
type Config struct {
	PeerName        string
	ConfigDir       string
	DataDir         string
	ListenAddresses AddrList
	BootstrapPeers  AddrList
	APIPort         uint
	KeyHex          string
	KeyStoreDir     string
	KeyStoreName    string
	KeyStorePwd     string
	IsDebug         bool
}
