package crypto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	ethkeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/rumsystem/mstnode/internal/pkg/logging"
	localcrypto "github.com/rumsystem/mstnode/pkg/crypto"
)

var ks_log = logging.Logger("keystore")

var ErrKeyNotExist = errors.New("Key not exist")

const signKeyPrefix = "sign_"

// DirKeyStore keeps password encrypted sign keys, one json file per key,
// in the go-ethereum keystore format
type DirKeyStore struct {
	Name         string
	KeystorePath string
	scryptN      int
	scryptP      int
	mu           sync.Mutex
}

func InitDirKeyStore(name string, keydir string) (*DirKeyStore, error) {
	keydir, err := filepath.Abs(keydir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(keydir, 0700); err != nil {
		return nil, err
	}
	return &DirKeyStore{
		Name:         name,
		KeystorePath: keydir,
		scryptN:      ethkeystore.StandardScryptN,
		scryptP:      ethkeystore.StandardScryptP,
	}, nil
}

// UseLightScrypt trades key file strength for speed, only for tests and
// throwaway nodes
func (ks *DirKeyStore) UseLightScrypt() {
	ks.scryptN = ethkeystore.LightScryptN
	ks.scryptP = ethkeystore.LightScryptP
}

func (ks *DirKeyStore) keyPath(keyname string) string {
	return filepath.Join(ks.KeystorePath, signKeyPrefix+keyname)
}

func writeTemporaryKeyFile(file string, content []byte) (string, error) {
	const dirPerm = 0700
	if err := os.MkdirAll(filepath.Dir(file), dirPerm); err != nil {
		return "", err
	}
	// TempFile assigns mode 0600
	f, err := os.CreateTemp(filepath.Dir(file), "."+filepath.Base(file)+".tmp")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	f.Close()
	return f.Name(), nil
}

func (ks *DirKeyStore) IfKeyExist(keyname string) (bool, error) {
	_, err := os.Stat(ks.keyPath(keyname))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// StoreSignKey encrypts kp with password and writes it under keyname. An
// existing key is never overwritten.
func (ks *DirKeyStore) StoreSignKey(keyname string, kp *localcrypto.Keypair, password string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	exist, err := ks.IfKeyExist(keyname)
	if err != nil {
		return err
	}
	if exist {
		return fmt.Errorf("Key '%s' exists", keyname)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	key := &ethkeystore.Key{
		Id:         id,
		Address:    ethcrypto.PubkeyToAddress(kp.PrivateKey.PublicKey),
		PrivateKey: kp.PrivateKey,
	}
	keyjson, err := ethkeystore.EncryptKey(key, password, ks.scryptN, ks.scryptP)
	if err != nil {
		return err
	}

	storefilename := ks.keyPath(keyname)
	tmpName, err := writeTemporaryKeyFile(storefilename, keyjson)
	if err != nil {
		return err
	}
	// read it back before it replaces anything
	if _, err := ks.readKey(tmpName, password); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("verify keystore file failed: %w", err)
	}
	ks_log.Infof("sign key %s stored, address %s", keyname, key.Address.Hex())
	return os.Rename(tmpName, storefilename)
}

func (ks *DirKeyStore) LoadSignKey(keyname string, password string) (*localcrypto.Keypair, error) {
	exist, err := ks.IfKeyExist(keyname)
	if err != nil {
		return nil, err
	}
	if !exist {
		return nil, ErrKeyNotExist
	}
	key, err := ks.readKey(ks.keyPath(keyname), password)
	if err != nil {
		return nil, err
	}
	return &localcrypto.Keypair{PrivateKey: key.PrivateKey}, nil
}

// LoadOrCreateSignKey loads keyname, a new key is generated and stored
// when it does not exist
func (ks *DirKeyStore) LoadOrCreateSignKey(keyname string, password string) (*localcrypto.Keypair, error) {
	kp, err := ks.LoadSignKey(keyname, password)
	if err == nil {
		return kp, nil
	}
	if !errors.Is(err, ErrKeyNotExist) {
		return nil, err
	}

	ks_log.Infof("sign key %s not found, generating...", keyname)
	kp, err = localcrypto.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	if err := ks.StoreSignKey(keyname, kp, password); err != nil {
		return nil, err
	}
	return kp, nil
}

func (ks *DirKeyStore) readKey(filename string, password string) (*ethkeystore.Key, error) {
	keyjson, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ethkeystore.DecryptKey(keyjson, password)
}
